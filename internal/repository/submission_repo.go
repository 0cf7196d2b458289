package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

// ErrNoFiles is returned when a status change requires at least one file.
var ErrNoFiles = errors.New("submission has no files")

// ErrNotPending is returned when files change on a submission that has left
// the pending state.
var ErrNotPending = errors.New("submission is not pending")

type SubmissionRepo struct {
	db *gorm.DB
}

func NewSubmissionRepo(db *gorm.DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Files", "ShareLinks").Create(sub).Error
}

// FindByID returns nil, nil when no submission has that id.
func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByToken returns nil, nil when the token is unknown.
func (r *SubmissionRepo) FindByToken(ctx context.Context, accessToken string) (*models.Submission, error) {
	return r.findOne(ctx, "access_token = ?", accessToken)
}

func (r *SubmissionRepo) findOne(ctx context.Context, query string, arg any) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).Where(query, arg).Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns a page of submissions, newest first, optionally filtered by status.
func (r *SubmissionRepo) List(ctx context.Context, status models.Status, skip, limit int) ([]models.Submission, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Submission{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	subs := make([]models.Submission, 0, limit)
	err := q.Order("created_at DESC").Offset(skip).Limit(limit).Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

// Search matches sponsor, respondent and case number case-insensitively.
func (r *SubmissionRepo) Search(ctx context.Context, term string, limit int) ([]models.Submission, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	subs := make([]models.Submission, 0)
	err := r.db.WithContext(ctx).
		Where("LOWER(sponsor_name) LIKE ? OR LOWER(sponsor_email) LIKE ? OR LOWER(respondent_name) LIKE ? OR LOWER(respondent_case_number) LIKE ?",
			pattern, pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// CountByStatus returns the number of submissions in each status.
func (r *SubmissionRepo) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.Status]int64, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// MarkSubmitted flips a pending submission to submitted in one conditional
// update that also requires at least one file row. It reports whether this
// call performed the transition.
func (r *SubmissionRepo) MarkSubmitted(ctx context.Context, id string, at time.Time) (bool, error) {
	flipped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Where("EXISTS (SELECT 1 FROM submission_files f WHERE f.submission_id = submissions.id)").
			Updates(map[string]any{
				"status":       models.StatusSubmitted,
				"submitted_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flipped = true
		return tx.Create(&models.StatusChange{
			SubmissionID: id,
			FromStatus:   models.StatusPending,
			ToStatus:     models.StatusSubmitted,
			CreatedAt:    at,
		}).Error
	})
	return flipped, err
}

// StatusUpdate is an admin-driven status change.
type StatusUpdate struct {
	Status     models.Status
	Notes      *string
	ReviewerID string
	At         time.Time
}

// ApplyStatus sets status, review metadata and notes, and appends the audit row.
// It returns nil, nil when the submission does not exist and ErrNoFiles when
// moving to submitted without any file.
func (r *SubmissionRepo) ApplyStatus(ctx context.Context, id string, u StatusUpdate) (*models.Submission, error) {
	var out *models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		err := tx.Where("id = ?", id).Take(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		updates := map[string]any{"status": u.Status}
		switch u.Status {
		case models.StatusSubmitted:
			var files int64
			if err := tx.Model(&models.SubmissionFile{}).Where("submission_id = ?", id).Count(&files).Error; err != nil {
				return err
			}
			if files == 0 {
				return ErrNoFiles
			}
			if sub.SubmittedAt == nil {
				updates["submitted_at"] = u.At
			}
		case models.StatusReviewed, models.StatusApproved, models.StatusRejected:
			updates["reviewed_at"] = u.At
			updates["reviewed_by"] = u.ReviewerID
		}
		if u.Notes != nil {
			updates["admin_notes"] = *u.Notes
		}

		if err := tx.Model(&sub).Updates(updates).Error; err != nil {
			return err
		}
		change := models.StatusChange{
			SubmissionID: id,
			FromStatus:   sub.Status,
			ToStatus:     u.Status,
			ChangedBy:    u.ReviewerID,
			CreatedAt:    u.At,
		}
		if u.Notes != nil {
			change.Notes = *u.Notes
		}
		if err := tx.Create(&change).Error; err != nil {
			return err
		}

		if err := tx.Where("id = ?", id).Take(&sub).Error; err != nil {
			return err
		}
		out = &sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns the status audit trail, oldest first.
func (r *SubmissionRepo) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	changes := make([]models.StatusChange, 0)
	err := r.db.WithContext(ctx).Where("submission_id = ?", id).Order("created_at ASC, id ASC").Find(&changes).Error
	return changes, err
}

// Delete removes the submission with its files, share links and history.
// Blobs are left in place. It reports whether the submission existed.
func (r *SubmissionRepo) Delete(ctx context.Context, id string) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.ShareLink{}, &models.SubmissionFile{}, &models.StatusChange{}} {
			if err := tx.Where("submission_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Submission{})
		if res.Error != nil {
			return res.Error
		}
		found = res.RowsAffected > 0
		return nil
	})
	return found, err
}
