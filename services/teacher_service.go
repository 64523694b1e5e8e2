package services

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/anjiri1684/tutor_marketplace/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var clockTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type TeacherService struct {
	db    *gorm.DB
	index TeacherIndexer
}

// NewTeacherService builds the service; index may be nil, in which case search runs
// on the database only.
func NewTeacherService(db *gorm.DB, index TeacherIndexer) *TeacherService {
	return &TeacherService{db: db, index: index}
}

type ProfileInput struct {
	Headline          *string
	Bio               *string
	HourlyRate        float64
	YearsOfExperience int
	Education         *string
}

// UpsertProfile creates or updates the actor's teacher profile. HourlyRate is in
// major units and stored in cents.
func (s *TeacherService) UpsertProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.TeacherProfile, error) {
	if !actor.IsTeacher() {
		return nil, newPermissionError("only teachers can manage a teacher profile")
	}
	if in.HourlyRate <= 0 {
		return nil, newValidationError("hourly rate must be greater than zero")
	}
	if in.YearsOfExperience < 0 {
		return nil, newValidationError("years of experience cannot be negative")
	}

	var profile models.TeacherProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", actor.ID).First(&profile).Error
		if err != nil && !database.IsNotFound(err) {
			return err
		}
		if database.IsNotFound(err) {
			profile = models.TeacherProfile{UserID: actor.ID, IsAvailableForNewStudents: true}
		}

		profile.Headline = in.Headline
		profile.Bio = in.Bio
		profile.HourlyRate = DollarsToCents(in.HourlyRate)
		profile.YearsOfExperience = in.YearsOfExperience
		profile.Education = in.Education
		return tx.Omit(clause.Associations).Save(&profile).Error
	})
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, profile.ID)
	return &profile, nil
}

func (s *TeacherService) ToggleAcceptingStudents(ctx context.Context, actor Actor) (*models.TeacherProfile, error) {
	var profile models.TeacherProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", actor.ID).First(&profile).Error; err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("teacher profile not found")
			}
			return err
		}
		profile.IsAvailableForNewStudents = !profile.IsAvailableForNewStudents
		return tx.Model(&profile).Update("is_available_for_new_students", profile.IsAvailableForNewStudents).Error
	})
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, profile.ID)
	return &profile, nil
}

func (s *TeacherService) SetProfilePicture(ctx context.Context, actor Actor, url string) (*models.TeacherProfile, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(profile).Update("profile_picture_url", url).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", actor.ID).Update("profile_picture_url", url).Error
	})
	if err != nil {
		return nil, err
	}
	profile.ProfilePictureURL = &url
	return profile, nil
}

func (s *TeacherService) GetProfile(ctx context.Context, teacherProfileID uuid.UUID) (*models.TeacherProfile, error) {
	var profile models.TeacherProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Subjects").
		Preload("Availability", func(db *gorm.DB) *gorm.DB {
			return db.Order("day_of_week ASC, start_time ASC")
		}).
		First(&profile, "id = ?", teacherProfileID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("teacher not found")
		}
		return nil, err
	}
	return &profile, nil
}

func (s *TeacherService) GetMyProfile(ctx context.Context, actor Actor) (*models.TeacherProfile, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, profile.ID)
}

func (s *TeacherService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := s.db.WithContext(ctx).Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (s *TeacherService) AddSubject(ctx context.Context, actor Actor, subjectID uuid.UUID) error {
	profile, subject, err := s.profileAndSubject(ctx, actor, subjectID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(profile).Association("Subjects").Append(subject); err != nil {
		return err
	}
	s.reindex(ctx, profile.ID)
	return nil
}

func (s *TeacherService) RemoveSubject(ctx context.Context, actor Actor, subjectID uuid.UUID) error {
	profile, subject, err := s.profileAndSubject(ctx, actor, subjectID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(profile).Association("Subjects").Delete(subject); err != nil {
		return err
	}
	s.reindex(ctx, profile.ID)
	return nil
}

func (s *TeacherService) profileAndSubject(ctx context.Context, actor Actor, subjectID uuid.UUID) (*models.TeacherProfile, *models.Subject, error) {
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	var subject models.Subject
	if err := s.db.WithContext(ctx).First(&subject, "id = ?", subjectID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, nil, newNotFoundError("subject not found")
		}
		return nil, nil, err
	}
	return profile, &subject, nil
}

type AvailabilityInput struct {
	DayOfWeek   int
	StartTime   string
	EndTime     string
	IsRecurring *bool
}

func (in AvailabilityInput) validate() error {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return newValidationError("day of week must be between 0 and 6")
	}
	if !clockTime.MatchString(in.StartTime) || !clockTime.MatchString(in.EndTime) {
		return newValidationError("times must use the HH:MM format")
	}
	if in.StartTime >= in.EndTime {
		return newValidationError("start time must be before end time")
	}
	return nil
}

func (s *TeacherService) AddAvailability(ctx context.Context, actor Actor, in AvailabilityInput) (*models.AvailabilitySlot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}

	slot := models.AvailabilitySlot{
		TeacherProfileID: profile.ID,
		DayOfWeek:        in.DayOfWeek,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		IsRecurring:      in.IsRecurring == nil || *in.IsRecurring,
	}
	if err := s.db.WithContext(ctx).Create(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (s *TeacherService) UpdateAvailability(ctx context.Context, actor Actor, slotID uuid.UUID, in AvailabilityInput) (*models.AvailabilitySlot, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	slot, err := s.ownSlot(ctx, actor, slotID)
	if err != nil {
		return nil, err
	}

	slot.DayOfWeek = in.DayOfWeek
	slot.StartTime = in.StartTime
	slot.EndTime = in.EndTime
	if in.IsRecurring != nil {
		slot.IsRecurring = *in.IsRecurring
	}
	if err := s.db.WithContext(ctx).Save(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *TeacherService) DeleteAvailability(ctx context.Context, actor Actor, slotID uuid.UUID) error {
	slot, err := s.ownSlot(ctx, actor, slotID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(slot).Error
}

func (s *TeacherService) ListAvailability(ctx context.Context, teacherProfileID uuid.UUID) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("teacher_profile_id = ?", teacherProfileID).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (s *TeacherService) ownSlot(ctx context.Context, actor Actor, slotID uuid.UUID) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	if err := s.db.WithContext(ctx).First(&slot, "id = ?", slotID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("availability slot not found")
		}
		return nil, err
	}
	profile, err := s.ownProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if slot.TeacherProfileID != profile.ID {
		return nil, newPermissionError("this availability slot belongs to another teacher")
	}
	return &slot, nil
}

func (s *TeacherService) ownProfile(ctx context.Context, actor Actor) (*models.TeacherProfile, error) {
	var profile models.TeacherProfile
	if err := s.db.WithContext(ctx).Where("user_id = ?", actor.ID).First(&profile).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("teacher profile not found")
		}
		return nil, err
	}
	return &profile, nil
}

type TeacherFilter struct {
	Query         string
	SubjectIDs    []uuid.UUID
	MinRate       *int64
	MaxRate       *int64
	MinRating     *float64
	OnlyAccepting bool
	Page          int
	PerPage       int
}

// SearchTeachers matches free text through the search index when one is configured
// and falls back to the database otherwise. Rate bounds are in cents.
func (s *TeacherService) SearchTeachers(ctx context.Context, f TeacherFilter) ([]models.TeacherProfile, utils.Pagination, error) {
	paging := utils.NewPaging(f.Page, f.PerPage, 20, 100)
	q := s.db.WithContext(ctx).Model(&models.TeacherProfile{})

	query := strings.TrimSpace(f.Query)
	if query != "" {
		ids, err := s.searchIndex(query)
		if err == nil {
			q = q.Where("teacher_profiles.id IN ?", nonEmpty(ids))
		} else {
			like := "%" + strings.ToLower(query) + "%"
			q = q.Joins("JOIN users ON users.id = teacher_profiles.user_id").
				Where("LOWER(users.full_name) LIKE ? OR LOWER(teacher_profiles.headline) LIKE ? OR LOWER(teacher_profiles.bio) LIKE ?", like, like, like)
		}
	}
	if len(f.SubjectIDs) > 0 {
		q = q.Where("teacher_profiles.id IN (?)",
			s.db.Table("teacher_subjects").Select("teacher_profile_id").Where("subject_id IN ?", f.SubjectIDs))
	}
	if f.MinRate != nil {
		q = q.Where("teacher_profiles.hourly_rate >= ?", *f.MinRate)
	}
	if f.MaxRate != nil {
		q = q.Where("teacher_profiles.hourly_rate <= ?", *f.MaxRate)
	}
	if f.MinRating != nil {
		q = q.Where("teacher_profiles.average_rating >= ?", *f.MinRating)
	}
	if f.OnlyAccepting {
		q = q.Where("teacher_profiles.is_available_for_new_students = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, utils.Pagination{}, err
	}

	var teachers []models.TeacherProfile
	err := q.Preload("User").Preload("Subjects").
		Order("teacher_profiles.average_rating DESC, teacher_profiles.created_at ASC").
		Offset(paging.Offset).Limit(paging.PerPage).
		Find(&teachers).Error
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return teachers, paging.Meta(total), nil
}

func (s *TeacherService) searchIndex(query string) ([]uuid.UUID, error) {
	if s.index == nil {
		return nil, errIndexUnavailable
	}
	ids, err := s.index.SearchTeacherIDs(query, 1000)
	if err != nil {
		log.Printf("⚠️ Teacher search index unavailable, falling back to database: %v", err)
		return nil, err
	}
	return ids, nil
}

// nonEmpty keeps "IN ?" valid when the index returned no hits.
func nonEmpty(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return []uuid.UUID{uuid.Nil}
	}
	return ids
}

func (s *TeacherService) reindex(ctx context.Context, teacherProfileID uuid.UUID) {
	if s.index == nil {
		return
	}
	profile, err := s.GetProfile(ctx, teacherProfileID)
	if err != nil {
		log.Printf("⚠️ Could not load teacher %s for indexing: %v", teacherProfileID, err)
		return
	}
	if err := s.index.IndexTeacher(profile); err != nil {
		log.Printf("⚠️ Failed to index teacher %s: %v", teacherProfileID, err)
	}
}
