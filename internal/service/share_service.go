package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/auth"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/token"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/validate"
)

// dummyHash is compared against when a link has no password, so every
// access pays for exactly one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("sponsordocs-timing-equalizer")
	return h
})

type ShareService struct {
	subs  *repository.SubmissionRepo
	docs  *repository.DocumentRepo
	links *repository.ShareLinkRepo
	urls  linker
	log   zerolog.Logger
	now   func() time.Time
}

func NewShareService(subs *repository.SubmissionRepo, docs *repository.DocumentRepo, links *repository.ShareLinkRepo, store blob.Store, downloadTTL time.Duration, log zerolog.Logger) *ShareService {
	log = log.With().Str("service", "share").Logger()
	return &ShareService{
		subs:  subs,
		docs:  docs,
		links: links,
		urls:  linker{store: store, ttl: downloadTTL, log: log},
		log:   log,
		now:   utcNow,
	}
}

type CreateShareLinkInput struct {
	ExpiresInHours int    `json:"expiresInHours" validate:"min=1,max=720"`
	RecipientName  string `json:"recipientName" validate:"omitempty,max=200"`
	RecipientEmail string `json:"recipientEmail" validate:"omitempty,email,max=254"`
	MaxViews       int    `json:"maxViews" validate:"min=0,max=100"`
	Password       string `json:"password" validate:"omitempty,min=4,max=50"`
}

func (s *ShareService) Create(ctx context.Context, submissionID string, in CreateShareLinkInput, createdBy string) (*models.ShareLink, error) {
	in.RecipientName = strings.TrimSpace(in.RecipientName)
	in.RecipientEmail = strings.TrimSpace(in.RecipientEmail)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	sub, err := s.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fail(s.log, err, "find submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}

	tok, err := token.New(token.Share)
	if err != nil {
		return nil, fail(s.log, err, "generate share token")
	}
	now := s.now()
	link := &models.ShareLink{
		ID:             newID(),
		SubmissionID:   submissionID,
		ShareToken:     tok,
		ExpiresAt:      now.Add(time.Duration(in.ExpiresInHours) * time.Hour),
		IsActive:       true,
		MaxViews:       in.MaxViews,
		RecipientName:  in.RecipientName,
		RecipientEmail: in.RecipientEmail,
		CreatedBy:      createdBy,
		CreatedAt:      now,
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, fail(s.log, err, "hash share password")
		}
		link.PasswordHash = hash
		link.PasswordProtected = true
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fail(s.log, err, "create share link")
	}
	link.State = link.StateAt(now)
	s.log.Info().Str("submission_id", submissionID).Str("link_id", link.ID).
		Int("expires_in_hours", in.ExpiresInHours).Int("max_views", in.MaxViews).
		Bool("password", link.PasswordProtected).Msg("share link created")
	return link, nil
}

// SharedView is what a share-link holder sees. It carries no storage keys
// and no contact details.
type SharedView struct {
	SponsorName    string        `json:"sponsorName"`
	RespondentName string        `json:"respondentName"`
	Status         models.Status `json:"status"`
	SubmittedAt    *time.Time    `json:"submittedAt,omitempty"`
	ExpiresAt      time.Time     `json:"expiresAt"`
	ViewCount      int           `json:"viewCount"`
	MaxViews       int           `json:"maxViews,omitempty"`
	Files          []SharedFile  `json:"files"`
}

type SharedFile struct {
	ID               string          `json:"id"`
	Category         models.Category `json:"category"`
	CategoryLabel    string          `json:"categoryLabel"`
	DocumentName     string          `json:"documentName"`
	Description      string          `json:"description,omitempty"`
	OriginalFilename string          `json:"originalFilename"`
	Size             int64           `json:"size"`
	MimeType         string          `json:"mimeType"`
	UploadedAt       time.Time       `json:"uploadedAt"`
	DownloadURL      string          `json:"downloadUrl,omitempty"`
}

// Access validates a share token and spends one view. Failures are reported
// in a fixed order: not found, revoked, expired, view limit, password.
func (s *ShareService) Access(ctx context.Context, shareToken, password, clientIP string) (*SharedView, error) {
	ctx, span := startSpan(ctx, "share.access")
	defer span.End()

	view, err := s.access(ctx, shareToken, password, clientIP)
	if err != nil {
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		return nil, err
	}
	return view, nil
}

func (s *ShareService) access(ctx context.Context, shareToken, password, clientIP string) (*SharedView, error) {
	if !token.Valid(token.Share, shareToken) {
		return nil, apperr.NotFound("share link not found")
	}
	link, err := s.links.FindByToken(ctx, shareToken)
	if err != nil {
		return nil, fail(s.log, err, "find share link")
	}
	if link == nil {
		return nil, apperr.NotFound("share link not found")
	}
	now := s.now()
	if err := stateError(link.StateAt(now)); err != nil {
		return nil, err
	}

	hash := link.PasswordHash
	if hash == "" {
		hash = dummyHash()
	}
	matched := auth.CheckPassword(password, hash)
	if link.PasswordHash != "" {
		if password == "" {
			return nil, apperr.Unauthorized("this link requires a password")
		}
		if !matched {
			return nil, apperr.Unauthorized("incorrect password")
		}
	}

	// The password check takes real time; the view is spent at its own instant.
	consumedAt := s.now()
	ok, err := s.links.ConsumeView(ctx, link.ID, consumedAt, clientIP)
	if err != nil {
		return nil, fail(s.log, err, "consume share view")
	}
	if !ok {
		// Lost a race with a revoke, delete, expiry or the last remaining view.
		cur, err := s.links.FindByID(ctx, link.ID)
		if err != nil {
			return nil, fail(s.log, err, "reload share link")
		}
		if cur == nil {
			return nil, apperr.NotFound("share link not found")
		}
		if err := stateError(cur.StateAt(consumedAt)); err != nil {
			return nil, err
		}
		return nil, apperr.ViewLimitExceeded("this link has reached its view limit")
	}

	sub, err := s.subs.FindByID(ctx, link.SubmissionID)
	if err != nil {
		return nil, fail(s.log, err, "find shared submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("share link not found")
	}
	files, err := s.docs.FindBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, fail(s.log, err, "list shared files")
	}
	s.urls.attach(ctx, files)

	view := &SharedView{
		SponsorName:    sub.SponsorName,
		RespondentName: sub.RespondentName,
		Status:         sub.Status,
		SubmittedAt:    sub.SubmittedAt,
		ExpiresAt:      link.ExpiresAt,
		ViewCount:      link.ViewCount + 1,
		MaxViews:       link.MaxViews,
		Files:          make([]SharedFile, 0, len(files)),
	}
	for _, f := range files {
		view.Files = append(view.Files, SharedFile{
			ID:               f.ID,
			Category:         f.Category,
			CategoryLabel:    f.Category.Label(),
			DocumentName:     f.DisplayName(),
			Description:      f.Description,
			OriginalFilename: f.OriginalFilename,
			Size:             f.Size,
			MimeType:         f.MimeType,
			UploadedAt:       f.UploadedAt,
			DownloadURL:      f.DownloadURL,
		})
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("share.link_id", link.ID), attribute.Int("share.files", len(files)))
	s.log.Info().Str("link_id", link.ID).Str("submission_id", sub.ID).Str("ip", clientIP).Msg("share link accessed")
	return view, nil
}

func stateError(state models.ShareState) error {
	switch state {
	case models.ShareRevoked:
		return apperr.Revoked("this link has been revoked")
	case models.ShareExpired:
		return apperr.Expired("this link has expired")
	case models.ShareExhausted:
		return apperr.ViewLimitExceeded("this link has reached its view limit")
	}
	return nil
}

// Revoke deactivates a link. Revoking twice is not an error.
func (s *ShareService) Revoke(ctx context.Context, linkID string) (*models.ShareLink, error) {
	found, err := s.links.Revoke(ctx, linkID, s.now())
	if err != nil {
		return nil, fail(s.log, err, "revoke share link")
	}
	if !found {
		return nil, apperr.NotFound("share link not found")
	}
	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		return nil, fail(s.log, err, "reload share link")
	}
	if link == nil {
		return nil, apperr.NotFound("share link not found")
	}
	link.State = link.StateAt(s.now())
	s.log.Info().Str("link_id", linkID).Msg("share link revoked")
	return link, nil
}

func (s *ShareService) Delete(ctx context.Context, linkID string) error {
	found, err := s.links.Delete(ctx, linkID)
	if err != nil {
		return fail(s.log, err, "delete share link")
	}
	if !found {
		return apperr.NotFound("share link not found")
	}
	s.log.Info().Str("link_id", linkID).Msg("share link deleted")
	return nil
}

// List returns every link of a submission, usable or not, newest first.
func (s *ShareService) List(ctx context.Context, submissionID string) ([]models.ShareLink, error) {
	sub, err := s.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fail(s.log, err, "find submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	links, err := s.links.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fail(s.log, err, "list share links")
	}
	now := s.now()
	for i := range links {
		links[i].State = links[i].StateAt(now)
	}
	return links, nil
}
