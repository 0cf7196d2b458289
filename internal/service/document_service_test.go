package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

func TestUploadCheckOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub := e.createSubmission(t)
	huge := make([]byte, models.MaxFileSize+1)

	cases := []struct {
		name  string
		token string
		in    UploadInput
		want  apperr.Kind
	}{
		{"unknown token wins", "sub_nope", UploadInput{Category: "bogus", Data: huge}, apperr.KindUnauthorized},
		{"size before category", sub.AccessToken, UploadInput{Category: "bogus", Data: huge}, apperr.KindPayloadTooLarge},
		{"bad category", sub.AccessToken, UploadInput{Category: "bogus", Data: []byte("x")}, apperr.KindValidation},
		{"empty file", sub.AccessToken, UploadInput{Category: models.CategoryPayStub}, apperr.KindValidation},
	}
	for _, tc := range cases {
		_, err := e.docs.Upload(ctx, tc.token, tc.in)
		if apperr.KindOf(err) != tc.want {
			t.Errorf("%s: got %v, want %s", tc.name, err, tc.want)
		}
	}
	if e.store.Len() != 0 {
		t.Fatalf("rejected uploads wrote %d blobs", e.store.Len())
	}
}

func TestUploadAtExactLimit(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	f := e.upload(t, sub.AccessToken, models.CategoryBankStatement, "statement", models.MaxFileSize)
	if f.Size != models.MaxFileSize {
		t.Fatalf("size = %d", f.Size)
	}
}

func TestUploadUnknownTokenPersistsNothing(t *testing.T) {
	e := newEnv(t)
	_, err := e.docs.Upload(context.Background(), "sub_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", UploadInput{Category: models.CategoryOther, Data: []byte("x")})
	wantKind(t, err, apperr.KindUnauthorized)
	var n int64
	e.db.Model(&models.SubmissionFile{}).Count(&n)
	if n != 0 || e.store.Len() != 0 {
		t.Fatalf("unknown token persisted %d records, %d blobs", n, e.store.Len())
	}
}

func TestUploadStorageKeyAndMime(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 64)...)
	f, err := e.docs.Upload(context.Background(), sub.AccessToken, UploadInput{
		Category: models.CategoryTaxReturn,
		Filename: "../../2023 tax (final).pdf",
		Data:     pdf,
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.MimeType != "application/pdf" {
		t.Fatalf("detected mime = %q", f.MimeType)
	}
	if !strings.HasPrefix(f.BlobKey, "submissions/"+sub.ID+"/") || strings.Contains(f.BlobKey, "..") || strings.Contains(f.BlobKey, " ") {
		t.Fatalf("unsafe key %q", f.BlobKey)
	}
	if f.DocumentName != "2023 tax (final)" || f.OriginalFilename != "2023 tax (final).pdf" {
		t.Fatalf("document name = %q", f.DocumentName)
	}
}

func TestUploadDerivesNameFromNonASCIIExtension(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	cases := map[string]string{
		".Ⱥ":       models.CategoryOther.Label(),
		"Résumé.Ⱥ": "Résumé",
		"scan.PDF": "scan",
	}
	for filename, want := range cases {
		f, err := e.docs.Upload(context.Background(), sub.AccessToken, UploadInput{
			Category: models.CategoryOther,
			Filename: filename,
			Data:     []byte("hello"),
		})
		if err != nil {
			t.Fatalf("upload %q: %v", filename, err)
		}
		if f.DocumentName != want {
			t.Errorf("upload %q: document name = %q, want %q", filename, f.DocumentName, want)
		}
	}
}

func TestUploadLockedAfterFinalize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub := e.createSubmission(t)
	f := e.upload(t, sub.AccessToken, models.CategoryPayStub, "stub", 10)
	if _, err := e.subs.Finalize(ctx, sub.AccessToken); err != nil {
		t.Fatal(err)
	}
	_, err := e.docs.Upload(ctx, sub.AccessToken, UploadInput{Category: models.CategoryPayStub, Data: []byte("x")})
	wantKind(t, err, apperr.KindPreconditionFailed)
	wantKind(t, e.docs.DeleteFile(ctx, sub.AccessToken, f.ID), apperr.KindPreconditionFailed)
}

func TestUploadsRacingFinalizeNeverLandAfterIt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub := e.createSubmission(t)
	e.upload(t, sub.AccessToken, models.CategoryPayStub, "first", 10)

	const uploaders = 8
	var wg sync.WaitGroup
	for i := 0; i < uploaders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.docs.Upload(ctx, sub.AccessToken, UploadInput{
				Category: models.CategoryBankStatement,
				Filename: fmt.Sprintf("statement-%d.pdf", i),
				Data:     []byte("%PDF-1.4"),
			})
			if err != nil && apperr.KindOf(err) != apperr.KindPreconditionFailed {
				t.Errorf("upload %d: %v", i, err)
			}
		}(i)
	}
	final, err := e.subs.Finalize(ctx, sub.AccessToken)
	wg.Wait()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	stored, err := e.docs.ListBySubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != len(final.Files) {
		t.Fatalf("%d files stored, finalize reported %d", len(stored), len(final.Files))
	}
	if e.store.Len() != len(stored) {
		t.Fatalf("%d blobs for %d recorded files", e.store.Len(), len(stored))
	}
}

func TestDeleteFileOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.createSubmission(t)
	b := e.createSubmission(t)
	fb := e.upload(t, b.AccessToken, models.CategoryPayStub, "b's stub", 10)

	wantKind(t, e.docs.DeleteFile(ctx, a.AccessToken, fb.ID), apperr.KindNotFound)
	files, err := e.docs.ListByToken(ctx, b.AccessToken)
	if err != nil || len(files) != 1 {
		t.Fatalf("b's file was touched: %v %v", files, err)
	}

	if err := e.docs.DeleteFile(ctx, b.AccessToken, fb.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	files, _ = e.docs.ListByToken(ctx, b.AccessToken)
	if len(files) != 0 {
		t.Fatal("record should be gone")
	}
	if e.store.Len() != 1 {
		t.Fatal("blob should be kept for audit")
	}
	wantKind(t, e.docs.DeleteFile(ctx, "sub_bad", fb.ID), apperr.KindUnauthorized)
}

func TestStaffFileListHasRetrievalURLs(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	e.upload(t, sub.AccessToken, models.CategoryPayStub, "stub", 10)
	files, err := e.docs.ListBySubmission(context.Background(), sub.ID)
	if err != nil || len(files) != 1 {
		t.Fatalf("list: %v %v", files, err)
	}
	if !strings.HasPrefix(files[0].DownloadURL, "http://localhost:8080/api/v1/blobs/") {
		t.Fatalf("download url = %q", files[0].DownloadURL)
	}
	_, err = e.docs.ListBySubmission(context.Background(), "missing")
	wantKind(t, err, apperr.KindNotFound)
}
