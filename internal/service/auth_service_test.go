package service

import (
	"context"
	"testing"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/apperr"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/auth"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
)

func TestSeedAdminAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.auth.SeedAdmin(ctx, "Admin@Firm.example", "changeme1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := e.auth.SeedAdmin(ctx, "admin@firm.example", "other"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	res, err := e.auth.Login(ctx, LoginInput{Email: "admin@firm.example", Password: "changeme1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.ValidateToken("jwt-test-secret", res.Token)
	if err != nil || claims.Role != models.RoleAdmin {
		t.Fatalf("claims = %+v, %v", claims, err)
	}
	me, err := e.auth.Me(ctx, claims.UserID)
	if err != nil || me.Email != "admin@firm.example" {
		t.Fatalf("me = %+v, %v", me, err)
	}

	_, err = e.auth.Login(ctx, LoginInput{Email: "admin@firm.example", Password: "other"})
	wantKind(t, err, apperr.KindUnauthorized)
	_, err = e.auth.Login(ctx, LoginInput{Email: "nobody@firm.example", Password: "changeme1"})
	wantKind(t, err, apperr.KindUnauthorized)
	_, err = e.auth.Login(ctx, LoginInput{Email: "", Password: ""})
	wantKind(t, err, apperr.KindValidation)
}

func TestSearchAndDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sub := e.createSubmission(t)
	e.upload(t, sub.AccessToken, models.CategoryPayStub, "stub", 10)
	if _, err := e.subs.Finalize(ctx, sub.AccessToken); err != nil {
		t.Fatal(err)
	}
	e.createSubmission(t)

	subRepo := repository.NewSubmissionRepo(e.db)
	search := NewSearchService(subRepo, e.subs.log)
	res, err := search.Search(ctx, "jane", 10)
	if err != nil || len(res.Items) != 2 {
		t.Fatalf("search = %+v, %v", res, err)
	}
	_, err = search.Search(ctx, " j ", 10)
	wantKind(t, err, apperr.KindValidation)

	dash := NewDashboardService(subRepo, repository.NewDocumentRepo(e.db), repository.NewShareLinkRepo(e.db), e.subs.log)
	if _, err := e.shares.Create(ctx, sub.ID, CreateShareLinkInput{ExpiresInHours: 1}, "staff"); err != nil {
		t.Fatal(err)
	}
	d, err := dash.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.SubmissionCount != 2 || d.ByStatus[models.StatusPending] != 1 || d.ByStatus[models.StatusSubmitted] != 1 || d.DocumentCount != 1 || d.ActiveShareLinks != 1 {
		t.Fatalf("dashboard = %+v", d)
	}
}
