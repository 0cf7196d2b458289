package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

type ExportRepo struct {
	db *gorm.DB
}

func NewExportRepo(db *gorm.DB) *ExportRepo {
	return &ExportRepo{db: db}
}

func (r *ExportRepo) Create(ctx context.Context, e *models.ArchiveExport) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// FindExpired returns up to limit exports whose retention ended before now.
func (r *ExportRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.ArchiveExport, error) {
	exports := make([]models.ArchiveExport, 0)
	err := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&exports).Error
	return exports, err
}

func (r *ExportRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ArchiveExport{}).Error
}
