package blob

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"pay stub (march).pdf":  "paystubmarch.pdf",
		"my pay stub.pdf":       "mypaystub.pdf",
		"w2_final.pdf":          "w2final.pdf",
		"日本.pdf":                "pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\w2.PDF`:    "w2.PDF",
		"résumé.docx":           "rsum.docx",
		"...":                   "file",
		"":                      "file",
		"2023-tax-return.pdf":   "2023-tax-return.pdf",
	}
	for in, want := range cases {
		got := SanitizeFilename(in)
		if got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
		if i := strings.IndexFunc(got, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-')
		}); i >= 0 {
			t.Errorf("SanitizeFilename(%q) = %q keeps %q", in, got, got[i:i+1])
		}
	}
}

func TestFileKeyLayout(t *testing.T) {
	k := FileKey("sub-1", "my file.pdf")
	if !strings.HasPrefix(k, "submissions/sub-1/") || !strings.HasSuffix(k, "-myfile.pdf") {
		t.Fatalf("unexpected key %q", k)
	}
	if FileKey("sub-1", "a.pdf") == FileKey("sub-1", "a.pdf") {
		t.Fatal("keys for the same name must differ")
	}
	if e := ExportKey("sub-1"); !strings.HasPrefix(e, "exports/sub-1/") || !strings.HasSuffix(e, ".zip") {
		t.Fatalf("unexpected export key %q", e)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", "https://docs.example.com/")
	u, err := s.URL("submissions/x/y.pdf", "Pay Stub.pdf", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	prefix := "https://docs.example.com/api/v1/blobs/"
	if !strings.HasPrefix(u, prefix) {
		t.Fatalf("url %q", u)
	}
	key, name, err := s.Verify(strings.TrimPrefix(u, prefix))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if key != "submissions/x/y.pdf" || name != "Pay Stub.pdf" {
		t.Fatalf("got %q %q", key, name)
	}
}

func TestSignerRejectsExpiredAndForeign(t *testing.T) {
	s := NewSigner("secret", "http://x")
	base := time.Now()
	s.now = func() time.Time { return base }
	u, _ := s.URL("k", "", time.Minute)
	tok := u[strings.LastIndex(u, "/")+1:]

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, _, err := s.Verify(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}

	other := NewSigner("other-secret", "http://x")
	if _, _, err := other.Verify(tok); err == nil {
		t.Fatal("expected token from another secret to fail")
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(NewSigner("s", "http://x"))
	obj, err := m.Put(ctx, "a/b", []byte("hello"), "text/plain")
	if err != nil || obj.Size != 5 || obj.URL != "memory://a/b" {
		t.Fatalf("put = %+v, %v", obj, err)
	}
	data, err := m.Get(ctx, "a/b")
	if err != nil || string(data) != "hello" {
		t.Fatalf("get = %q, %v", data, err)
	}
	if err := m.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, "a/b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
