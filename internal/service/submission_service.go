package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/notify"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/token"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/validate"
)

type SubmissionConfig struct {
	// StaffRecipients receive the completion notice.
	StaffRecipients []string
	// PublicBaseURL prefixes the sponsor upload link in invitations.
	PublicBaseURL  string
	DownloadURLTTL time.Duration
}

type SubmissionService struct {
	subs     *repository.SubmissionRepo
	docs     *repository.DocumentRepo
	notifier *notify.Dispatcher
	links    linker
	cfg      SubmissionConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewSubmissionService(subs *repository.SubmissionRepo, docs *repository.DocumentRepo, store blob.Store, notifier *notify.Dispatcher, cfg SubmissionConfig, log zerolog.Logger) *SubmissionService {
	log = log.With().Str("service", "submission").Logger()
	return &SubmissionService{
		subs:     subs,
		docs:     docs,
		notifier: notifier,
		links:    linker{store: store, ttl: cfg.DownloadURLTTL, log: log},
		cfg:      cfg,
		log:      log,
		now:      utcNow,
	}
}

type CreateSubmissionInput struct {
	SponsorName          string `json:"sponsorName" validate:"notblank,max=200"`
	SponsorEmail         string `json:"sponsorEmail" validate:"required,email,max=254"`
	SponsorPhone         string `json:"sponsorPhone" validate:"omitempty,max=40"`
	RespondentName       string `json:"respondentName" validate:"notblank,max=200"`
	RespondentCaseNumber string `json:"respondentCaseNumber" validate:"omitempty,max=100"`
	// SendInvitation mails the upload link to the sponsor. Honoured only for
	// staff-created submissions.
	SendInvitation bool `json:"sendInvitation"`
}

func (in *CreateSubmissionInput) normalize() {
	in.SponsorName = strings.TrimSpace(in.SponsorName)
	in.SponsorEmail = strings.TrimSpace(in.SponsorEmail)
	in.SponsorPhone = strings.TrimSpace(in.SponsorPhone)
	in.RespondentName = strings.TrimSpace(in.RespondentName)
	in.RespondentCaseNumber = strings.TrimSpace(in.RespondentCaseNumber)
}

// Create opens a pending submission. createdBy is empty for the public flow.
func (s *SubmissionService) Create(ctx context.Context, in CreateSubmissionInput, createdBy string) (*models.Submission, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	tok, err := token.New(token.Access)
	if err != nil {
		return nil, fail(s.log, err, "generate access token")
	}
	now := s.now()
	sub := &models.Submission{
		ID:                   newID(),
		AccessToken:          tok,
		Status:               models.StatusPending,
		SponsorName:          in.SponsorName,
		SponsorEmail:         in.SponsorEmail,
		SponsorPhone:         in.SponsorPhone,
		RespondentName:       in.RespondentName,
		RespondentCaseNumber: in.RespondentCaseNumber,
		CreatedBy:            createdBy,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fail(s.log, err, "create submission")
	}
	s.log.Info().Str("submission_id", sub.ID).Str("token", token.Redact(tok)).Bool("staff", createdBy != "").Msg("submission created")

	if in.SendInvitation && createdBy != "" {
		link := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/sponsor-upload/" + sub.AccessToken
		s.notifier.Dispatch("collection_invitation", notify.CollectionInvitation(sub, link))
	}
	return sub, nil
}

// resolve looks a submission up by access token. Malformed and unknown
// tokens both yield nil without error.
func (s *SubmissionService) resolve(ctx context.Context, accessToken string) (*models.Submission, error) {
	if !token.Valid(token.Access, accessToken) {
		return nil, nil
	}
	sub, err := s.subs.FindByToken(ctx, accessToken)
	if err != nil {
		return nil, fail(s.log, err, "find submission by token")
	}
	return sub, nil
}

// GetByToken returns the submission and its files to the uploading party.
func (s *SubmissionService) GetByToken(ctx context.Context, accessToken string) (*models.Submission, error) {
	sub, err := s.resolve(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	files, err := s.docs.FindBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, fail(s.log, err, "list files")
	}
	sub.Files = files
	return sub, nil
}

// Finalize moves a pending submission to submitted and notifies staff once.
// Repeated calls on an already finalized submission return it unchanged.
func (s *SubmissionService) Finalize(ctx context.Context, accessToken string) (*models.Submission, error) {
	ctx, span := startSpan(ctx, "submission.finalize")
	defer span.End()

	sub, err := s.resolve(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	span.SetAttributes(attribute.String("submission.id", sub.ID))

	flipped, err := s.subs.MarkSubmitted(ctx, sub.ID, s.now())
	if err != nil {
		return nil, fail(s.log, err, "finalize submission")
	}
	if !flipped && sub.Status == models.StatusPending {
		cur, err := s.subs.FindByID(ctx, sub.ID)
		if err != nil {
			return nil, fail(s.log, err, "reload submission")
		}
		if cur == nil {
			return nil, apperr.NotFound("submission not found")
		}
		if cur.Status == models.StatusPending {
			return nil, apperr.PreconditionFailed("upload at least one document before submitting")
		}
	}

	cur, err := s.GetByToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("submission.transitioned", flipped), attribute.Int("submission.files", len(cur.Files)))
	if flipped {
		s.log.Info().Str("submission_id", cur.ID).Int("files", len(cur.Files)).Msg("submission finalized")
		s.notifier.Dispatch("submission_completed", notify.SubmissionCompleted(s.cfg.StaffRecipients, cur, cur.Files))
	}
	return cur, nil
}

type UpdateStatusInput struct {
	Status     models.Status `json:"status" validate:"required,status"`
	AdminNotes *string       `json:"adminNotes" validate:"omitempty,max=5000"`
}

// UpdateStatus applies an admin status change. Any transition is accepted and
// recorded in the history; moving to submitted still requires a file.
func (s *SubmissionService) UpdateStatus(ctx context.Context, id string, in UpdateStatusInput, reviewerID string) (*models.Submission, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	sub, err := s.subs.ApplyStatus(ctx, id, repository.StatusUpdate{
		Status:     in.Status,
		Notes:      in.AdminNotes,
		ReviewerID: reviewerID,
		At:         s.now(),
	})
	if errors.Is(err, repository.ErrNoFiles) {
		return nil, apperr.PreconditionFailed("a submission without documents cannot be marked submitted")
	}
	if err != nil {
		return nil, fail(s.log, err, "update status")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	s.log.Info().Str("submission_id", id).Str("status", string(in.Status)).Str("reviewer", reviewerID).Msg("status updated")
	return sub, nil
}

// Get returns a submission with its files and their retrieval URLs.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "find submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	files, err := s.docs.FindBySubmission(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "list files")
	}
	s.links.attach(ctx, files)
	sub.Files = files
	return sub, nil
}

type SubmissionList struct {
	Items []models.Submission `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (s *SubmissionService) List(ctx context.Context, status models.Status, page, limit int) (*SubmissionList, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("status is not a recognised status")
	}
	skip, limit, page := pageBounds(page, limit)
	items, total, err := s.subs.List(ctx, status, skip, limit)
	if err != nil {
		return nil, fail(s.log, err, "list submissions")
	}
	return &SubmissionList{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *SubmissionService) History(ctx context.Context, id string) ([]models.StatusChange, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "find submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	changes, err := s.subs.History(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "load history")
	}
	return changes, nil
}

// Delete removes the submission, its file records and share links. Blobs are
// kept for audit.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	found, err := s.subs.Delete(ctx, id)
	if err != nil {
		return fail(s.log, err, "delete submission")
	}
	if !found {
		return apperr.NotFound("submission not found")
	}
	s.log.Info().Str("submission_id", id).Msg("submission deleted")
	return nil
}
