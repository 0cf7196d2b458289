package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/token"
)

type DocumentService struct {
	subs        *repository.SubmissionRepo
	docs        *repository.DocumentRepo
	store       blob.Store
	links       linker
	blobTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time
}

func NewDocumentService(subs *repository.SubmissionRepo, docs *repository.DocumentRepo, store blob.Store, downloadTTL, blobTimeout time.Duration, log zerolog.Logger) *DocumentService {
	log = log.With().Str("service", "document").Logger()
	if blobTimeout <= 0 {
		blobTimeout = 30 * time.Second
	}
	return &DocumentService{
		subs:        subs,
		docs:        docs,
		store:       store,
		links:       linker{store: store, ttl: downloadTTL, log: log},
		blobTimeout: blobTimeout,
		log:         log,
		now:         utcNow,
	}
}

type UploadInput struct {
	Category     models.Category
	DocumentName string
	Description  string
	Filename     string
	ContentType  string
	Data         []byte
}

// ownerByToken resolves the submission an access token controls.
func (s *DocumentService) ownerByToken(ctx context.Context, accessToken string) (*models.Submission, error) {
	if !token.Valid(token.Access, accessToken) {
		return nil, apperr.Unauthorized("invalid access token")
	}
	sub, err := s.subs.FindByToken(ctx, accessToken)
	if err != nil {
		return nil, fail(s.log, err, "find submission by token")
	}
	if sub == nil {
		return nil, apperr.Unauthorized("invalid access token")
	}
	return sub, nil
}

// CheckToken reports whether accessToken controls a submission.
func (s *DocumentService) CheckToken(ctx context.Context, accessToken string) error {
	_, err := s.ownerByToken(ctx, accessToken)
	return err
}

// Upload stores one document for the submission the token controls. Checks
// run in order: token, size, category, then submission state.
func (s *DocumentService) Upload(ctx context.Context, accessToken string, in UploadInput) (*models.SubmissionFile, error) {
	sub, err := s.ownerByToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if len(in.Data) > models.MaxFileSize {
		return nil, apperr.PayloadTooLarge("file exceeds the 10 MB limit")
	}
	if !in.Category.Valid() {
		return nil, apperr.ValidationFields("category is not a recognised document category",
			map[string]string{"category": "category is not a recognised document category"})
	}
	if len(in.Data) == 0 {
		return nil, apperr.ValidationFields("file is empty", map[string]string{"file": "file is empty"})
	}
	if sub.Status != models.StatusPending {
		return nil, apperr.PreconditionFailed("documents can no longer be changed after submission")
	}

	filename := baseName(in.Filename)
	docName := strings.TrimSpace(in.DocumentName)
	if len(docName) > 200 {
		return nil, apperr.ValidationFields("documentName must be at most 200 characters",
			map[string]string{"documentName": "documentName must be at most 200 characters"})
	}
	if docName == "" {
		docName = strings.TrimSuffix(filename, rawExt(filename))
		if docName == "" {
			docName = in.Category.Label()
		}
	}

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(in.Data).String()
	}

	key := blob.FileKey(sub.ID, filename)
	putCtx, cancel := context.WithTimeout(ctx, s.blobTimeout)
	obj, err := s.store.Put(putCtx, key, in.Data, contentType)
	cancel()
	if err != nil {
		return nil, fail(s.log.With().Str("submission_id", sub.ID).Logger(), err, "store blob")
	}

	f := &models.SubmissionFile{
		ID:               newID(),
		SubmissionID:     sub.ID,
		Category:         in.Category,
		DocumentName:     docName,
		Description:      strings.TrimSpace(in.Description),
		BlobKey:          obj.Key,
		BlobURL:          obj.URL,
		OriginalFilename: filename,
		Size:             obj.Size,
		MimeType:         contentType,
		UploadedAt:       s.now(),
	}
	if err := s.docs.CreateWhilePending(ctx, f); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			// Finalized while the blob was being written.
			s.discard(key)
			return nil, apperr.PreconditionFailed("documents can no longer be changed after submission")
		}
		// The blob stays behind as an orphan.
		return nil, fail(s.log.With().Str("blob_key", key).Logger(), err, "record file")
	}
	s.log.Info().Str("submission_id", sub.ID).Str("file_id", f.ID).Str("category", string(f.Category)).Int64("size", f.Size).Msg("file uploaded")
	return f, nil
}

// discard removes a blob that never got a record.
func (s *DocumentService) discard(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.blobTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("blob_key", key).Msg("discard unrecorded blob")
	}
}

// DeleteFile removes a file record owned by the token's submission. The blob
// is kept for audit.
func (s *DocumentService) DeleteFile(ctx context.Context, accessToken, fileID string) error {
	sub, err := s.ownerByToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if sub.Status != models.StatusPending {
		return apperr.PreconditionFailed("documents can no longer be changed after submission")
	}
	deleted, err := s.docs.DeleteOwned(ctx, sub.ID, fileID, s.now())
	if errors.Is(err, repository.ErrNotPending) {
		return apperr.PreconditionFailed("documents can no longer be changed after submission")
	}
	if err != nil {
		return fail(s.log, err, "delete file")
	}
	if !deleted {
		return apperr.NotFound("file not found")
	}
	s.log.Info().Str("submission_id", sub.ID).Str("file_id", fileID).Msg("file record deleted")
	return nil
}

func (s *DocumentService) ListByToken(ctx context.Context, accessToken string) ([]models.SubmissionFile, error) {
	sub, err := s.ownerByToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	files, err := s.docs.FindBySubmission(ctx, sub.ID)
	if err != nil {
		return nil, fail(s.log, err, "list files")
	}
	return files, nil
}

// ListBySubmission is the staff view, with retrieval URLs.
func (s *DocumentService) ListBySubmission(ctx context.Context, submissionID string) ([]models.SubmissionFile, error) {
	sub, err := s.subs.FindByID(ctx, submissionID)
	if err != nil {
		return nil, fail(s.log, err, "find submission")
	}
	if sub == nil {
		return nil, apperr.NotFound("submission not found")
	}
	files, err := s.docs.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fail(s.log, err, "list files")
	}
	s.links.attach(ctx, files)
	return files, nil
}

// Blob returns the bytes behind a signed download. Detection fills in the
// content type.
func (s *DocumentService) Blob(ctx context.Context, key string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.blobTimeout)
	defer cancel()
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", apperr.NotFound("file not found")
	}
	if err != nil {
		return nil, "", fail(s.log, err, "read blob")
	}
	return data, mimetype.Detect(data).String(), nil
}
