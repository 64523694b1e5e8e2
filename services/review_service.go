package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minReviewComment = 3
	maxReviewComment = 1000
)

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// SubmitReview records the parent's single review of a completed booking and
// refreshes the teacher's rating aggregate.
func (s *ReviewService) SubmitReview(ctx context.Context, actor Actor, bookingID uuid.UUID, rating int, comment string) (*models.Review, error) {
	comment = strings.TrimSpace(comment)
	if rating < 1 || rating > 5 {
		return nil, newValidationError("rating must be between 1 and 5")
	}
	if n := utf8.RuneCountInString(comment); n < minReviewComment || n > maxReviewComment {
		return nil, newValidationError("comment must be between %d and %d characters", minReviewComment, maxReviewComment)
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
			if database.IsNotFound(err) {
				return newNotFoundError("booking not found")
			}
			return err
		}
		if booking.ParentID != actor.ID {
			return newPermissionError("only the parent who booked can review this session")
		}
		if booking.Status != models.BookingCompleted {
			return newPolicyError("reviews can only be submitted for completed bookings")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return newConflictError("a review for this booking has already been submitted")
		}

		var teacher models.TeacherProfile
		if err := tx.First(&teacher, "id = ?", booking.TeacherProfileID).Error; err != nil {
			return err
		}

		review = models.Review{
			BookingID:        booking.ID,
			TeacherProfileID: teacher.ID,
			FromUserID:       actor.ID,
			ToUserID:         teacher.UserID,
			Rating:           rating,
			Comment:          comment,
		}
		if err := tx.Omit("FromUser").Create(&review).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return newConflictError("a review for this booking has already been submitted")
			}
			return err
		}
		return refreshRating(tx, teacher.ID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func refreshRating(tx *gorm.DB, teacherProfileID uuid.UUID) error {
	var agg struct {
		Avg   float64
		Count int
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("teacher_profile_id = ?", teacherProfileID).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.TeacherProfile{}).Where("id = ?", teacherProfileID).Updates(map[string]any{
		"average_rating": agg.Avg,
		"review_count":   agg.Count,
	}).Error
}

func (s *ReviewService) ListTeacherReviews(ctx context.Context, teacherProfileID uuid.UUID, limit int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Preload("FromUser").
		Where("teacher_profile_id = ?", teacherProfileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}
