package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, f *models.SubmissionFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// lockPending touches the submission row inside tx so a concurrent finalize
// waits for tx, and fails with ErrNotPending once it is no longer pending.
func lockPending(tx *gorm.DB, submissionID string, at time.Time) error {
	res := tx.Model(&models.Submission{}).
		Where("id = ? AND status = ?", submissionID, models.StatusPending).
		Update("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// CreateWhilePending records f only if its submission is still pending,
// returning ErrNotPending otherwise. No file can land after a finalize.
func (r *DocumentRepo) CreateWhilePending(ctx context.Context, f *models.SubmissionFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPending(tx, f.SubmissionID, f.UploadedAt); err != nil {
			return err
		}
		return tx.Create(f).Error
	})
}

// FindByID returns nil, nil when the file does not exist.
func (r *DocumentRepo) FindByID(ctx context.Context, id string) (*models.SubmissionFile, error) {
	var f models.SubmissionFile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FindBySubmission lists a submission's files in upload order.
func (r *DocumentRepo) FindBySubmission(ctx context.Context, submissionID string) ([]models.SubmissionFile, error) {
	files := make([]models.SubmissionFile, 0)
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("uploaded_at ASC, id ASC").
		Find(&files).Error
	return files, err
}

func (r *DocumentRepo) CountBySubmission(ctx context.Context, submissionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SubmissionFile{}).Where("submission_id = ?", submissionID).Count(&n).Error
	return n, err
}

// DeleteOwned removes the file record only if it belongs to submissionID
// and the submission is still pending (ErrNotPending otherwise). The
// ownership check is part of the DELETE itself.
func (r *DocumentRepo) DeleteOwned(ctx context.Context, submissionID, fileID string, at time.Time) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPending(tx, submissionID, at); err != nil {
			return err
		}
		res := tx.Where("id = ? AND submission_id = ?", fileID, submissionID).
			Delete(&models.SubmissionFile{})
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}

func (r *DocumentRepo) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SubmissionFile{}).Count(&n).Error
	return n, err
}
