package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/db/dbtest"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/notify"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
)

type env struct {
	db       *gorm.DB
	store    *blob.Memory
	mail     *notify.Recorder
	notifier *notify.Dispatcher

	subs   *SubmissionService
	docs   *DocumentService
	shares *ShareService
	export *ExportService
	auth   *AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := dbtest.Open(t)
	log := zerolog.Nop()
	store := blob.NewMemory(blob.NewSigner("test-secret", "http://localhost:8080"))
	rec := &notify.Recorder{}
	dispatcher := notify.NewDispatcher(rec, time.Second, log)

	subRepo := repository.NewSubmissionRepo(gdb)
	docRepo := repository.NewDocumentRepo(gdb)
	linkRepo := repository.NewShareLinkRepo(gdb)
	exportRepo := repository.NewExportRepo(gdb)

	return &env{
		db:       gdb,
		store:    store,
		mail:     rec,
		notifier: dispatcher,
		subs: NewSubmissionService(subRepo, docRepo, store, dispatcher, SubmissionConfig{
			StaffRecipients: []string{"intake@firm.example"},
			PublicBaseURL:   "https://docs.firm.example",
			DownloadURLTTL:  time.Minute,
		}, log),
		docs:   NewDocumentService(subRepo, docRepo, store, time.Minute, time.Second, log),
		shares: NewShareService(subRepo, docRepo, linkRepo, store, time.Minute, log),
		export: NewExportService(subRepo, docRepo, exportRepo, store, ExportConfig{TTL: time.Hour, BlobTimeout: time.Second}, log),
		auth:   NewAuthService(repository.NewUserRepo(gdb), "jwt-test-secret", time.Hour, log),
	}
}

func (e *env) createSubmission(t *testing.T) *models.Submission {
	t.Helper()
	sub, err := e.subs.Create(context.Background(), CreateSubmissionInput{
		SponsorName:    "Jane Doe",
		SponsorEmail:   "jane@example.com",
		RespondentName: "John Doe",
	}, "")
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	return sub
}

func (e *env) upload(t *testing.T, accessToken string, cat models.Category, name string, size int) *models.SubmissionFile {
	t.Helper()
	f, err := e.docs.Upload(context.Background(), accessToken, UploadInput{
		Category:     cat,
		DocumentName: name,
		Filename:     name + ".pdf",
		ContentType:  "application/pdf",
		Data:         bytes.Repeat([]byte("x"), size),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return f
}

// sentMessages waits for in-flight notifications and returns them.
func (e *env) sentMessages() []notify.Message {
	e.notifier.Wait()
	return e.mail.Messages()
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}
