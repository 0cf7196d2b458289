package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
)

type SearchService struct {
	subs *repository.SubmissionRepo
	log  zerolog.Logger
}

func NewSearchService(subs *repository.SubmissionRepo, log zerolog.Logger) *SearchService {
	return &SearchService{subs: subs, log: log.With().Str("service", "search").Logger()}
}

type SearchResult struct {
	Query string              `json:"query"`
	Items []models.Submission `json:"items"`
}

// Search matches sponsor name or email, respondent name and case number.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, apperr.Validation("search query must be at least 2 characters")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := s.subs.Search(ctx, query, limit)
	if err != nil {
		return nil, fail(s.log, err, "search submissions")
	}
	return &SearchResult{Query: query, Items: items}, nil
}
