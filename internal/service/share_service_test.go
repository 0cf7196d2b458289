package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

func (e *env) shareFor(t *testing.T, in CreateShareLinkInput) (*models.Submission, *models.ShareLink) {
	t.Helper()
	sub := e.createSubmission(t)
	e.upload(t, sub.AccessToken, models.CategoryPayStub, "stub", 10)
	link, err := e.shares.Create(context.Background(), sub.ID, in, "staff-1")
	if err != nil {
		t.Fatalf("create share link: %v", err)
	}
	return sub, link
}

func TestCreateShareLinkBounds(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	bad := []CreateShareLinkInput{
		{ExpiresInHours: 0},
		{ExpiresInHours: 721},
		{ExpiresInHours: 1, MaxViews: 101},
		{ExpiresInHours: 1, MaxViews: -1},
		{ExpiresInHours: 1, Password: "abc"},
		{ExpiresInHours: 1, Password: strings.Repeat("p", 51)},
		{ExpiresInHours: 1, RecipientEmail: "nope"},
	}
	for _, in := range bad {
		_, err := e.shares.Create(context.Background(), sub.ID, in, "staff")
		wantKind(t, err, apperr.KindValidation)
	}
	_, err := e.shares.Create(context.Background(), "missing", CreateShareLinkInput{ExpiresInHours: 1}, "staff")
	wantKind(t, err, apperr.KindNotFound)
}

func TestShareLinkNeverEchoesPassword(t *testing.T) {
	e := newEnv(t)
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, Password: "opensesame"})
	raw, _ := json.Marshal(link)
	if strings.Contains(string(raw), "opensesame") || strings.Contains(string(raw), "$2a$") {
		t.Fatalf("password material leaked: %s", raw)
	}
	if !link.PasswordProtected || !strings.HasPrefix(link.ShareToken, "shr_") {
		t.Fatalf("link = %+v", link)
	}
}

// Two views allowed, third refused.
func TestScenarioViewLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, MaxViews: 2})

	for i := 1; i <= 2; i++ {
		view, err := e.shares.Access(ctx, link.ShareToken, "", "10.0.0.1")
		if err != nil {
			t.Fatalf("access %d: %v", i, err)
		}
		if view.ViewCount != i {
			t.Fatalf("view count = %d, want %d", view.ViewCount, i)
		}
	}
	_, err := e.shares.Access(ctx, link.ShareToken, "", "10.0.0.1")
	wantKind(t, err, apperr.KindViewLimitExceeded)

	links, _ := e.shares.List(ctx, link.SubmissionID)
	if links[0].ViewCount != 2 || links[0].State != models.ShareExhausted || links[0].LastAccessedIP != "10.0.0.1" {
		t.Fatalf("stored link = %+v", links[0])
	}
}

func TestShareExpiredRegardlessOfViews(t *testing.T) {
	e := newEnv(t)
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, MaxViews: 50})
	e.shares.now = func() time.Time { return time.Now().UTC().Add(61 * time.Minute) }
	_, err := e.shares.Access(context.Background(), link.ShareToken, "", "")
	wantKind(t, err, apperr.KindExpired)
}

func TestShareExpiringDuringAccessSpendsNoView(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, MaxViews: 5})

	// Valid when checked, past expiry by the time the view is spent.
	calls := 0
	e.shares.now = func() time.Time {
		calls++
		if calls == 1 {
			return link.ExpiresAt.Add(-time.Millisecond)
		}
		return link.ExpiresAt.Add(time.Millisecond)
	}
	_, err := e.shares.Access(ctx, link.ShareToken, "", "10.0.0.9")
	wantKind(t, err, apperr.KindExpired)

	links, _ := e.shares.List(ctx, link.SubmissionID)
	if links[0].ViewCount != 0 || links[0].LastAccessedAt != nil {
		t.Fatalf("expired access spent a view: %+v", links[0])
	}
}

func TestShareRevokedBeforeOtherReasons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, MaxViews: 1, Password: "secret1"})
	if _, err := e.shares.Revoke(ctx, link.ID); err != nil {
		t.Fatal(err)
	}
	again, err := e.shares.Revoke(ctx, link.ID)
	if err != nil || again.State != models.ShareRevoked || again.RevokedAt == nil {
		t.Fatalf("second revoke: %+v %v", again, err)
	}
	e.shares.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = e.shares.Access(ctx, link.ShareToken, "", "")
	wantKind(t, err, apperr.KindRevoked)

	_, err = e.shares.Revoke(ctx, "missing")
	wantKind(t, err, apperr.KindNotFound)
}

func TestShareUnknownToken(t *testing.T) {
	e := newEnv(t)
	sub := e.createSubmission(t)
	for _, tok := range []string{"", "shr_nope", sub.AccessToken} {
		_, err := e.shares.Access(context.Background(), tok, "", "")
		wantKind(t, err, apperr.KindNotFound)
	}
}

func TestSharePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, Password: "correct horse"})

	_, errMissing := e.shares.Access(ctx, link.ShareToken, "", "")
	wantKind(t, errMissing, apperr.KindUnauthorized)
	_, errWrong := e.shares.Access(ctx, link.ShareToken, "battery staple", "")
	wantKind(t, errWrong, apperr.KindUnauthorized)
	if apperr.Message(errMissing) == apperr.Message(errWrong) {
		t.Fatal("missing and wrong password should read differently")
	}
	if _, err := e.shares.Access(ctx, link.ShareToken, "correct horse ", ""); err == nil {
		t.Fatal("near match must be rejected")
	}
	view, err := e.shares.Access(ctx, link.ShareToken, "correct horse", "")
	if err != nil || view.ViewCount != 1 {
		t.Fatalf("correct password: %+v %v", view, err)
	}
}

func TestSharePasswordCheckAlwaysHashes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, Password: "correct horse"})
	dummyHash()

	// bcrypt at the default cost takes several milliseconds; an early exit
	// on the empty password would not.
	for _, pw := range []string{"", "wrong password"} {
		start := time.Now()
		e.shares.Access(ctx, link.ShareToken, pw, "")
		if d := time.Since(start); d < 5*time.Millisecond {
			t.Fatalf("password %q rejected in %v, bcrypt was skipped", pw, d)
		}
	}
}

func TestShareConcurrentLastView(t *testing.T) {
	e := newEnv(t)
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1, MaxViews: 1})

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.shares.Access(context.Background(), link.ShareToken, "", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)
	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.KindOf(err) == apperr.KindViewLimitExceeded:
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful view, got %d", wins)
	}
}

func TestSharedViewIsRedacted(t *testing.T) {
	e := newEnv(t)
	_, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1})
	view, err := e.shares.Access(context.Background(), link.ShareToken, "", "")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(view)
	s := string(raw)
	for _, leak := range []string{"submissions/", "memory://", "jane@example.com", "accessToken", "sub_"} {
		if strings.Contains(s, leak) {
			t.Fatalf("shared view leaks %q: %s", leak, s)
		}
	}
	if len(view.Files) != 1 || view.Files[0].DownloadURL == "" || view.Files[0].CategoryLabel != "Pay Stubs" {
		t.Fatalf("files = %+v", view.Files)
	}
}

func TestShareDeleteAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub, link := e.shareFor(t, CreateShareLinkInput{ExpiresInHours: 1})
	if _, err := e.shares.Create(ctx, sub.ID, CreateShareLinkInput{ExpiresInHours: 2}, "staff"); err != nil {
		t.Fatal(err)
	}
	links, err := e.shares.List(ctx, sub.ID)
	if err != nil || len(links) != 2 {
		t.Fatalf("list: %d %v", len(links), err)
	}
	if err := e.shares.Delete(ctx, link.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, e.shares.Delete(ctx, link.ID), apperr.KindNotFound)
	_, err = e.shares.Access(ctx, link.ShareToken, "", "")
	wantKind(t, err, apperr.KindNotFound)
}
