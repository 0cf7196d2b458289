package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
)

const (
	fetchConcurrency = 4
	sweepBatch       = 100
)

type ExportConfig struct {
	// TTL is how long an archive stays in the blob store and how long its
	// retrieval URL is valid.
	TTL         time.Duration
	BlobTimeout time.Duration
}

type ExportService struct {
	subs    *repository.SubmissionRepo
	docs    *repository.DocumentRepo
	exports *repository.ExportRepo
	store   blob.Store
	cfg     ExportConfig
	log     zerolog.Logger
	now     func() time.Time
}

func NewExportService(subs *repository.SubmissionRepo, docs *repository.DocumentRepo, exports *repository.ExportRepo, store blob.Store, cfg ExportConfig, log zerolog.Logger) *ExportService {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.BlobTimeout <= 0 {
		cfg.BlobTimeout = 30 * time.Second
	}
	return &ExportService{
		subs:    subs,
		docs:    docs,
		exports: exports,
		store:   store,
		cfg:     cfg,
		log:     log.With().Str("service", "export").Logger(),
		now:     utcNow,
	}
}

type ExportResult struct {
	ExportID          string    `json:"exportId"`
	DownloadURL       string    `json:"downloadUrl"`
	SuggestedFilename string    `json:"suggestedFilename"`
	FileCount         int       `json:"fileCount"`
	SkippedCount      int       `json:"skippedCount"`
	TotalSize         int64     `json:"totalSize"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// Export bundles every file of a submission into one zip grouped by category
// label. Files that cannot be read are logged and left out.
func (s *ExportService) Export(ctx context.Context, submissionID, createdBy string) (*ExportResult, error) {
	ctx, span := startSpan(ctx, "export.bundle")
	defer span.End()
	span.SetAttributes(attribute.String("submission.id", submissionID))

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
	if len(files) == 0 {
		return nil, apperr.PreconditionFailed("submission has no documents to export")
	}

	contents := s.fetchAll(ctx, files)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]int)
	var count int
	var total int64
	for i, f := range files {
		data := contents[i]
		if data == nil {
			continue
		}
		hdr := &zip.FileHeader{
			Name:     entryName(used, &f),
			Method:   zip.Deflate,
			Modified: f.UploadedAt,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fail(s.log, err, "write archive entry")
		}
		if _, err := w.Write(data); err != nil {
			return nil, fail(s.log, err, "write archive entry")
		}
		count++
		total += int64(len(data))
	}
	if err := zw.Close(); err != nil {
		return nil, fail(s.log, err, "close archive")
	}
	skipped := len(files) - count
	if count == 0 {
		return nil, fail(s.log.With().Str("submission_id", submissionID).Logger(),
			fmt.Errorf("all %d files unreadable", len(files)), "export produced no entries")
	}

	key := blob.ExportKey(submissionID)
	putCtx, cancel := context.WithTimeout(ctx, s.cfg.BlobTimeout)
	if _, err := s.store.Put(putCtx, key, buf.Bytes(), "application/zip"); err != nil {
		cancel()
		return nil, fail(s.log, err, "store archive")
	}
	cancel()

	now := s.now()
	rec := &models.ArchiveExport{
		ID:           newID(),
		SubmissionID: submissionID,
		BlobKey:      key,
		FileCount:    count,
		TotalSize:    total,
		CreatedBy:    createdBy,
		ExpiresAt:    now.Add(s.cfg.TTL),
		CreatedAt:    now,
	}
	if err := s.exports.Create(ctx, rec); err != nil {
		return nil, fail(s.log, err, "record export")
	}

	suggested := SuggestedFilename(sub.SponsorName, sub.RespondentName)
	url, err := s.store.URL(ctx, key, suggested+".zip", s.cfg.TTL)
	if err != nil {
		return nil, fail(s.log, err, "archive retrieval url")
	}

	span.SetAttributes(attribute.Int("export.files", count), attribute.Int("export.skipped", skipped), attribute.Int64("export.bytes", total))
	s.log.Info().Str("submission_id", submissionID).Str("export_id", rec.ID).
		Int("files", count).Int("skipped", skipped).Int64("bytes", total).Msg("archive exported")
	return &ExportResult{
		ExportID:          rec.ID,
		DownloadURL:       url,
		SuggestedFilename: suggested,
		FileCount:         count,
		SkippedCount:      skipped,
		TotalSize:         total,
		ExpiresAt:         rec.ExpiresAt,
	}, nil
}

// fetchAll reads every blob with bounded parallelism. A failed read leaves a
// nil slot.
func (s *ExportService) fetchAll(ctx context.Context, files []models.SubmissionFile) [][]byte {
	out := make([][]byte, len(files))
	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i := range files {
		f := files[i]
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, s.cfg.BlobTimeout)
			defer cancel()
			data, err := s.store.Get(fctx, f.BlobKey)
			if err != nil {
				s.log.Warn().Err(err).Str("submission_id", f.SubmissionID).Str("file_id", f.ID).Msg("skipping unreadable file in export")
				return nil
			}
			out[i] = data
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// entryName builds "<Category Label>/<display name>[.ext]" and disambiguates
// repeats within a folder with " (2)", " (3)" and so on.
func entryName(used map[string]int, f *models.SubmissionFile) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(downloadName(f))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	folder := f.Category.Label()
	full := folder + "/" + name
	n := used[strings.ToLower(full)]
	used[strings.ToLower(full)] = n + 1
	if n == 0 {
		return full
	}
	ext := rawExt(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n++
		candidate := fmt.Sprintf("%s/%s (%d)%s", folder, base, n, ext)
		if used[strings.ToLower(candidate)] == 0 {
			used[strings.ToLower(candidate)] = 1
			return candidate
		}
	}
}

// SuggestedFilename is "SponsorDocuments" followed by the sponsor and
// respondent names, accent-folded and reduced to ASCII letters and digits.
func SuggestedFilename(sponsor, respondent string) string {
	return "SponsorDocuments" + alnum(sponsor) + alnum(respondent)
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SweepExpired deletes archives past their retention. A blob that cannot be
// deleted keeps its record so the next sweep retries it.
func (s *ExportService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.exports.FindExpired(ctx, s.now(), sweepBatch)
	if err != nil {
		return 0, fail(s.log, err, "find expired exports")
	}
	removed := 0
	for _, e := range expired {
		dctx, cancel := context.WithTimeout(ctx, s.cfg.BlobTimeout)
		err := s.store.Delete(dctx, e.BlobKey)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("export_id", e.ID).Msg("archive blob delete failed")
			continue
		}
		if err := s.exports.Delete(ctx, e.ID); err != nil {
			s.log.Warn().Err(err).Str("export_id", e.ID).Msg("archive record delete failed")
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired archives swept")
	}
	return removed, nil
}
