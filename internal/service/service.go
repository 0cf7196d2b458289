package service

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

var tracer = otel.Tracer("github.com/emaildaana-cell/amarallegal-website-sub000/internal/service")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// fail logs an infrastructure error with context and returns the generic
// internal error that callers see.
func fail(log zerolog.Logger, err error, msg string) error {
	log.Error().Err(err).Msg(msg)
	return apperr.Internal(err)
}

func utcNow() time.Time { return time.Now().UTC() }

// linker attaches short-lived retrieval URLs to file metadata.
type linker struct {
	store blob.Store
	ttl   time.Duration
	log   zerolog.Logger
}

// attach sets DownloadURL on each file. A file whose URL cannot be produced
// is returned without one.
func (l linker) attach(ctx context.Context, files []models.SubmissionFile) {
	for i := range files {
		f := &files[i]
		u, err := l.store.URL(ctx, f.BlobKey, downloadName(f), l.ttl)
		if err != nil {
			l.log.Warn().Err(err).Str("file_id", f.ID).Msg("retrieval url failed")
			continue
		}
		f.DownloadURL = u
	}
}

func downloadName(f *models.SubmissionFile) string {
	name := f.DisplayName()
	if ext := extOf(f.OriginalFilename); ext != "" && extOf(name) == "" {
		name += ext
	}
	return name
}

func pageBounds(page, limit int) (skip, lim, p int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit, limit, page
}

func newID() string { return uuid.NewString() }

func extOf(name string) string {
	return strings.ToLower(rawExt(name))
}

// rawExt is the extension exactly as it appears in name, or "" when it is
// missing or implausibly long. Slice names with this, never with extOf.
func rawExt(name string) string {
	ext := path.Ext(name)
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	return ext
}

// baseName strips any client-side directory from an uploaded filename.
func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
