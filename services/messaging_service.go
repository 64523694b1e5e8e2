package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxMessageLength    = 2000
	defaultMessagesPage = 20
	maxMessagesPage     = 100
)

type MessagingService struct {
	db        *gorm.DB
	publisher Publisher
	notifier  Notifier
	now       func() time.Time
}

func NewMessagingService(db *gorm.DB, publisher Publisher, notifier Notifier) *MessagingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &MessagingService{
		db:        db,
		publisher: publisher,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the service clock. Intended for tests.
func (s *MessagingService) SetClock(now func() time.Time) { s.now = now }

// GetOrCreateConversation returns the single conversation between the two users,
// creating it on first use with parentID and teacherID in those roles. The pair is
// unordered: swapping the arguments finds the same row. Concurrent callers converge
// on one row.
func (s *MessagingService) GetOrCreateConversation(ctx context.Context, parentID, teacherID uuid.UUID) (*models.Conversation, error) {
	if parentID == teacherID {
		return nil, newValidationError("cannot start a conversation with yourself")
	}

	db := s.db.WithContext(ctx)
	key := models.ConversationPairKey(parentID, teacherID)
	candidate := models.Conversation{ParentID: parentID, TeacherID: teacherID, PairKey: key}
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_key"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	var conversation models.Conversation
	if err := db.Where("pair_key = ?", key).First(&conversation).Error; err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conversation, nil
}

// OpenConversation returns the actor's conversation with otherUserID. Exactly one of
// the two must be a teacher.
func (s *MessagingService) OpenConversation(ctx context.Context, actor Actor, otherUserID uuid.UUID) (*models.Conversation, error) {
	var other models.User
	if err := s.db.WithContext(ctx).First(&other, "id = ?", otherUserID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("user not found")
		}
		return nil, err
	}

	otherIsTeacher := other.Role == models.RoleTeacher
	if actor.IsTeacher() == otherIsTeacher {
		return nil, newPolicyError("conversations are between a parent and a teacher")
	}
	if actor.IsTeacher() {
		return s.GetOrCreateConversation(ctx, other.ID, actor.ID)
	}
	return s.GetOrCreateConversation(ctx, actor.ID, other.ID)
}

// StartTeacherConversation opens the parent's conversation with the owner of a
// teacher profile and optionally sends a first message.
func (s *MessagingService) StartTeacherConversation(ctx context.Context, actor Actor, teacherProfileID uuid.UUID, initialMessage string) (*models.Conversation, error) {
	var teacher models.TeacherProfile
	if err := s.db.WithContext(ctx).First(&teacher, "id = ?", teacherProfileID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("teacher not found")
		}
		return nil, err
	}

	if actor.IsTeacher() {
		return nil, newPolicyError("conversations are between a parent and a teacher")
	}
	conversation, err := s.GetOrCreateConversation(ctx, actor.ID, teacher.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(initialMessage) != "" {
		if _, err := s.SendMessage(ctx, actor, conversation.ID, initialMessage); err != nil {
			return nil, err
		}
	}
	return conversation, nil
}

func (s *MessagingService) SendMessage(ctx context.Context, actor Actor, conversationID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newValidationError("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, newValidationError("message cannot exceed %d characters", maxMessageLength)
	}

	var conversation models.Conversation
	var message models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conversation, "id = ?", conversationID).Error; err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("conversation not found")
			}
			return err
		}
		if !conversation.HasParticipant(actor.ID) {
			return newPermissionError("you are not part of this conversation")
		}

		message = models.Message{
			ConversationID: conversation.ID,
			SenderID:       actor.ID,
			Content:        content,
			CreatedAt:      s.now(),
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Update("updated_at", message.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}

	recipient := conversation.OtherParty(actor.ID)
	if !s.publisher.Publish(recipient, "message.new", &message) {
		s.notifyOffline(ctx, actor, recipient, &message)
	}
	return &message, nil
}

func (s *MessagingService) notifyOffline(ctx context.Context, sender Actor, recipientID uuid.UUID, message *models.Message) {
	var recipient models.User
	if err := s.db.WithContext(ctx).First(&recipient, "id = ?", recipientID).Error; err != nil {
		return
	}
	preview := message.Content
	if utf8.RuneCountInString(preview) > 140 {
		preview = string([]rune(preview)[:140]) + "…"
	}
	s.notifier.Notify(recipient, "New message from "+sender.Name,
		fmt.Sprintf("<h1>New Message</h1><p><b>%s</b> wrote:</p><p>%s</p>", html.EscapeString(sender.Name), html.EscapeString(preview)))
}

// MarkAsRead flips the read flag on messages in the conversation that the actor did
// not send and returns how many changed.
func (s *MessagingService) MarkAsRead(ctx context.Context, actor Actor, conversationID uuid.UUID) (int64, error) {
	if _, err := s.conversationFor(ctx, actor, conversationID); err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, actor.ID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		var conversation models.Conversation
		if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err == nil {
			s.publisher.Publish(conversation.OtherParty(actor.ID), "message.read", map[string]any{
				"conversation_id": conversationID,
				"reader_id":       actor.ID,
			})
		}
	}
	return res.RowsAffected, nil
}

type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	OtherUser    models.User         `json:"other_user"`
	LastMessage  *models.Message     `json:"last_message,omitempty"`
	UnreadCount  int64               `json:"unread_count"`
}

func (s *MessagingService) ListConversations(ctx context.Context, actor Actor) ([]ConversationSummary, error) {
	db := s.db.WithContext(ctx)

	var conversations []models.Conversation
	err := db.Preload("Parent").Preload("Teacher").
		Where("parent_id = ? OR teacher_id = ?", actor.ID, actor.ID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summary := ConversationSummary{Conversation: c, OtherUser: c.Parent}
		if c.ParentID == actor.ID {
			summary.OtherUser = c.Teacher
		}

		var last models.Message
		err := db.Where("conversation_id = ?", c.ID).Order("created_at DESC").Limit(1).Find(&last).Error
		if err != nil {
			return nil, err
		}
		if last.ID != uuid.Nil {
			summary.LastMessage = &last
		}

		err = db.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", c.ID, actor.ID, false).
			Count(&summary.UnreadCount).Error
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListMessages returns up to limit messages older than before (or the newest when
// before is nil), oldest first.
func (s *MessagingService) ListMessages(ctx context.Context, actor Actor, conversationID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	if _, err := s.conversationFor(ctx, actor, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagesPage
	}
	if limit > maxMessagesPage {
		limit = maxMessagesPage
	}

	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("created_at < ?", before.UTC())
	}

	var messages []models.Message
	if err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *MessagingService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.parent_id = ? OR conversations.teacher_id = ?)", actor.ID, actor.ID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", actor.ID, false).
		Count(&count).Error
	return count, err
}

func (s *MessagingService) conversationFor(ctx context.Context, actor Actor, conversationID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, newNotFoundError("conversation not found")
		}
		return nil, err
	}
	if !conversation.HasParticipant(actor.ID) {
		return nil, newPermissionError("you are not part of this conversation")
	}
	return &conversation, nil
}
