package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/db/dbtest"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/handler"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/notify"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
)

const jwtSecret = "router-test-secret"

type testServer struct {
	*httptest.Server
	mail     *notify.Recorder
	notifier *notify.Dispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := dbtest.Open(t)
	log := zerolog.Nop()

	ts := &testServer{mail: &notify.Recorder{}}
	ts.Server = httptest.NewUnstartedServer(nil)
	base := "http://" + ts.Listener.Addr().String()

	signer := blob.NewSigner(jwtSecret, base)
	store := blob.NewMemory(signer)
	ts.notifier = notify.NewDispatcher(ts.mail, time.Second, log)

	subs := repository.NewSubmissionRepo(gdb)
	docs := repository.NewDocumentRepo(gdb)
	links := repository.NewShareLinkRepo(gdb)
	exports := repository.NewExportRepo(gdb)

	authSvc := service.NewAuthService(repository.NewUserRepo(gdb), jwtSecret, time.Hour, log)
	if err := authSvc.SeedAdmin(context.Background(), "admin@firm.example", "adminpass"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	h := Handlers{
		Auth: handler.NewAuthHandler(authSvc),
		Submission: handler.NewSubmissionHandler(service.NewSubmissionService(subs, docs, store, ts.notifier,
			service.SubmissionConfig{StaffRecipients: []string{"intake@firm.example"}, PublicBaseURL: base, DownloadURLTTL: time.Minute}, log)),
		Document:  handler.NewDocumentHandler(service.NewDocumentService(subs, docs, store, time.Minute, time.Second, log), signer),
		Share:     handler.NewShareHandler(service.NewShareService(subs, docs, links, store, time.Minute, log)),
		Export:    handler.NewExportHandler(service.NewExportService(subs, docs, exports, store, service.ExportConfig{TTL: time.Hour}, log)),
		Search:    handler.NewSearchHandler(service.NewSearchService(subs, log)),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(subs, docs, links, log)),
	}
	ts.Config.Handler = New(Config{JWTSecret: jwtSecret, CORSOrigins: []string{"*"}}, h, log)
	ts.Start()
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, ts.URL+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (ts *testServer) upload(t *testing.T, accessToken, category, name string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("category", category)
	mw.WriteField("documentName", name)
	fw, _ := mw.CreateFormFile("file", name+".pdf")
	fw.Write(data)
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/sponsor-submissions/"+accessToken+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.send(t, req)
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "admin@firm.example", "password": "adminpass"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, body)
	}
	return body["token"].(string)
}

func TestSponsorToReviewerFlow(t *testing.T) {
	ts := newTestServer(t)

	resp, sub := ts.do(t, http.MethodPost, "/api/v1/sponsor-submissions", "", map[string]string{
		"sponsorName": "Jane Doe", "sponsorEmail": "jane@example.com", "respondentName": "John Doe",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %v", resp.StatusCode, sub)
	}
	accessToken := sub["accessToken"].(string)
	subID := sub["id"].(string)

	resp, body := ts.do(t, http.MethodPost, "/api/v1/sponsor-submissions/"+accessToken+"/finalize", "", nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "precondition_failed" {
		t.Fatalf("empty finalize: %d %v", resp.StatusCode, body)
	}

	for _, u := range []struct{ cat, name string }{{"pay_stub", "January"}, {"pay_stub", "February"}, {"tax_return", "2023"}} {
		resp, body = ts.upload(t, accessToken, u.cat, u.name, []byte("%PDF-1.4 "+u.name))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("upload %s: %d %v", u.name, resp.StatusCode, body)
		}
		if _, leaked := body["blobKey"]; leaked {
			t.Fatal("upload response exposes blob key")
		}
	}

	resp, body = ts.do(t, http.MethodPost, "/api/v1/sponsor-submissions/"+accessToken+"/finalize", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != string(models.StatusSubmitted) {
		t.Fatalf("finalize: %d %v", resp.StatusCode, body)
	}
	ts.notifier.Wait()
	if n := len(ts.mail.Messages()); n != 1 {
		t.Fatalf("expected one notification, got %d", n)
	}

	admin := ts.login(t)
	resp, body = ts.do(t, http.MethodPatch, "/api/v1/admin/submissions/"+subID+"/status", admin, map[string]string{"status": "reviewed"})
	if resp.StatusCode != http.StatusOK || body["reviewedBy"] == "" {
		t.Fatalf("update status: %d %v", resp.StatusCode, body)
	}

	resp, link := ts.do(t, http.MethodPost, "/api/v1/admin/submissions/"+subID+"/share-links", admin, map[string]any{
		"expiresInHours": 1, "maxViews": 2, "password": "letmein",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create link: %d %v", resp.StatusCode, link)
	}
	shareToken := link["shareToken"].(string)

	resp, body = ts.do(t, http.MethodGet, "/api/v1/shared/"+shareToken, "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no password: %d %v", resp.StatusCode, body)
	}
	resp, body = ts.do(t, http.MethodPost, "/api/v1/shared/"+shareToken, "", map[string]string{"password": "letmein"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shared access: %d %v", resp.StatusCode, body)
	}
	files := body["files"].([]any)
	if len(files) != 3 {
		t.Fatalf("shared files = %d", len(files))
	}

	// Follow a signed file URL.
	dl := files[0].(map[string]any)["downloadUrl"].(string)
	fileResp, err := http.Get(dl)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(fileResp.Body)
	fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK || !bytes.HasPrefix(data, []byte("%PDF-1.4")) {
		t.Fatalf("download: %d %q", fileResp.StatusCode, data)
	}

	resp, exp := ts.do(t, http.MethodPost, "/api/v1/admin/submissions/"+subID+"/export", admin, nil)
	if resp.StatusCode != http.StatusOK || exp["fileCount"].(float64) != 3 {
		t.Fatalf("export: %d %v", resp.StatusCode, exp)
	}
	zipResp, err := http.Get(exp["downloadUrl"].(string))
	if err != nil {
		t.Fatal(err)
	}
	zipResp.Body.Close()
	if cd := zipResp.Header.Get("Content-Disposition"); !strings.Contains(cd, "SponsorDocumentsJaneDoeJohnDoe.zip") {
		t.Fatalf("content disposition = %q", cd)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/admin/share-links/"+link["id"].(string)+"/revoke", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke: %d", resp.StatusCode)
	}
	resp, body = ts.do(t, http.MethodPost, "/api/v1/shared/"+shareToken, "", map[string]string{"password": "letmein"})
	if resp.StatusCode != http.StatusGone || body["code"] != "revoked" {
		t.Fatalf("revoked access: %d %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	if resp.StatusCode != http.StatusOK || body["documentCount"].(float64) != 3 {
		t.Fatalf("dashboard: %d %v", resp.StatusCode, body)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/v1/admin/submissions", "/api/v1/admin/dashboard", "/api/v1/auth/me"} {
		resp, body := ts.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized || body["code"] != "unauthorized" {
			t.Fatalf("%s without session: %d %v", path, resp.StatusCode, body)
		}
	}
}

func TestPublicErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/v1/sponsor-submissions/sub_unknown", "", nil)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "not_found" {
		t.Fatalf("unknown token: %d %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodPost, "/api/v1/sponsor-submissions", "", map[string]string{"sponsorName": "Jane"})
	if resp.StatusCode != http.StatusBadRequest || body["fields"] == nil {
		t.Fatalf("invalid create: %d %v", resp.StatusCode, body)
	}

	resp, body = ts.upload(t, "sub_unknown", "pay_stub", "x", []byte("x"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("upload with unknown token: %d %v", resp.StatusCode, body)
	}

	_, sub := ts.do(t, http.MethodPost, "/api/v1/sponsor-submissions", "", map[string]string{
		"sponsorName": "Jane Doe", "sponsorEmail": "jane@example.com", "respondentName": "John Doe",
	})
	resp, body = ts.upload(t, sub["accessToken"].(string), "pay_stub", "big", bytes.Repeat([]byte("x"), models.MaxFileSize+10))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: %d %v", resp.StatusCode, body)
	}
	resp, body = ts.upload(t, sub["accessToken"].(string), "passport", "x", []byte("x"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad category: %d %v", resp.StatusCode, body)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/v1/blobs/not-a-token", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("bad signed url: %d %v", resp.StatusCode, body)
	}
}
