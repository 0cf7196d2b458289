package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

type ShareLinkRepo struct {
	db *gorm.DB
}

func NewShareLinkRepo(db *gorm.DB) *ShareLinkRepo {
	return &ShareLinkRepo{db: db}
}

func (r *ShareLinkRepo) Create(ctx context.Context, l *models.ShareLink) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// FindByToken returns nil, nil for unknown tokens.
func (r *ShareLinkRepo) FindByToken(ctx context.Context, shareToken string) (*models.ShareLink, error) {
	return r.findOne(ctx, "share_token = ?", shareToken)
}

func (r *ShareLinkRepo) FindByID(ctx context.Context, id string) (*models.ShareLink, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *ShareLinkRepo) findOne(ctx context.Context, query string, arg any) (*models.ShareLink, error) {
	var l models.ShareLink
	err := r.db.WithContext(ctx).Where(query, arg).Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindBySubmission returns every link, active or not, newest first.
func (r *ShareLinkRepo) FindBySubmission(ctx context.Context, submissionID string) ([]models.ShareLink, error) {
	links := make([]models.ShareLink, 0)
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		Find(&links).Error
	return links, err
}

// ConsumeView atomically spends one view at time at. The validity re-check
// (active, unexpired at at, views left) and the increment are a single
// conditional UPDATE, so when one view remains only one of several
// concurrent callers sees true.
func (r *ShareLinkRepo) ConsumeView(ctx context.Context, id string, at time.Time, ip string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ? AND is_active = ? AND expires_at > ? AND (max_views = 0 OR view_count < max_views)", id, true, at).
		Updates(map[string]any{
			"view_count":       gorm.Expr("view_count + 1"),
			"last_accessed_at": at,
			"last_accessed_ip": ip,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Revoke deactivates the link, keeping the first revocation time. It reports
// whether the link exists.
func (r *ShareLinkRepo) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": gorm.Expr("COALESCE(revoked_at, ?)", at),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *ShareLinkRepo) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ShareLink{})
	return res.RowsAffected > 0, res.Error
}

// CountUsable counts links that are active and unexpired at now.
func (r *ShareLinkRepo) CountUsable(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("is_active = ? AND expires_at > ?", true, now).
		Count(&n).Error
	return n, err
}
