package services

import (
	"errors"
	"log"
	"strings"

	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

var errIndexUnavailable = errors.New("teacher search index is not configured")

// TeacherIndexer keeps a full-text index of teacher profiles.
type TeacherIndexer interface {
	IndexTeacher(profile *models.TeacherProfile) error
	SearchTeacherIDs(query string, limit int64) ([]uuid.UUID, error)
}

const teachersIndex = "teachers"

type teacherDocument struct {
	ID         string   `json:"id"`
	FullName   string   `json:"full_name"`
	Headline   string   `json:"headline"`
	Bio        string   `json:"bio"`
	Subjects   []string `json:"subjects"`
	HourlyRate int64    `json:"hourly_rate"`
	Accepting  bool     `json:"is_available_for_new_students"`
}

type MeiliTeacherIndex struct {
	client *meilisearch.Client
}

func NewMeiliTeacherIndex(host, apiKey string) *MeiliTeacherIndex {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	if _, err := client.GetIndex(teachersIndex); err != nil {
		_, err = client.CreateIndex(&meilisearch.IndexConfig{
			Uid:        teachersIndex,
			PrimaryKey: "id",
		})
		if err != nil {
			log.Printf("⚠️ Failed to create meilisearch teachers index: %v", err)
		}
		_, err = client.Index(teachersIndex).UpdateSearchableAttributes(&[]string{"full_name", "headline", "subjects", "bio"})
		if err != nil {
			log.Printf("⚠️ Failed to update teachers searchable attributes: %v", err)
		}
	}

	return &MeiliTeacherIndex{client: client}
}

func (m *MeiliTeacherIndex) IndexTeacher(profile *models.TeacherProfile) error {
	_, err := m.client.Index(teachersIndex).AddDocuments([]teacherDocument{toTeacherDocument(profile)})
	return err
}

func (m *MeiliTeacherIndex) SearchTeacherIDs(query string, limit int64) ([]uuid.UUID, error) {
	res, err := m.client.Index(teachersIndex).Search(query, &meilisearch.SearchRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return hitIDs(res.Hits), nil
}

func hitIDs(hits []interface{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		doc, ok := h.(map[string]interface{})
		if !ok {
			continue
		}
		raw, _ := doc["id"].(string)
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func toTeacherDocument(p *models.TeacherProfile) teacherDocument {
	doc := teacherDocument{
		ID:         p.ID.String(),
		FullName:   p.User.FullName,
		HourlyRate: p.HourlyRate,
		Accepting:  p.IsAvailableForNewStudents,
	}
	if p.Headline != nil {
		doc.Headline = *p.Headline
	}
	if p.Bio != nil {
		doc.Bio = strings.TrimSpace(*p.Bio)
	}
	for _, s := range p.Subjects {
		doc.Subjects = append(doc.Subjects, s.Name)
	}
	return doc
}
