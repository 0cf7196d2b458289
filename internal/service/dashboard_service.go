package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
)

type DashboardService struct {
	subs  *repository.SubmissionRepo
	docs  *repository.DocumentRepo
	links *repository.ShareLinkRepo
	log   zerolog.Logger
}

func NewDashboardService(subs *repository.SubmissionRepo, docs *repository.DocumentRepo, links *repository.ShareLinkRepo, log zerolog.Logger) *DashboardService {
	return &DashboardService{subs: subs, docs: docs, links: links, log: log.With().Str("service", "dashboard").Logger()}
}

type Dashboard struct {
	SubmissionCount  int64                   `json:"submissionCount"`
	ByStatus         map[models.Status]int64 `json:"byStatus"`
	DocumentCount    int64                   `json:"documentCount"`
	ActiveShareLinks int64                   `json:"activeShareLinks"`
}

func (s *DashboardService) Stats(ctx context.Context) (*Dashboard, error) {
	byStatus, err := s.subs.CountByStatus(ctx)
	if err != nil {
		return nil, fail(s.log, err, "count submissions")
	}
	d := &Dashboard{ByStatus: make(map[models.Status]int64, len(models.Statuses))}
	for _, st := range models.Statuses {
		d.ByStatus[st] = byStatus[st]
		d.SubmissionCount += byStatus[st]
	}
	if d.DocumentCount, err = s.docs.CountAll(ctx); err != nil {
		return nil, fail(s.log, err, "count files")
	}
	if d.ActiveShareLinks, err = s.links.CountUsable(ctx, time.Now().UTC()); err != nil {
		return nil, fail(s.log, err, "count share links")
	}
	return d, nil
}
