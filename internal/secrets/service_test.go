package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"secret.share/internal/crypto"
	"secret.share/internal/gate"
	"secret.share/internal/models"
	"secret.share/internal/store"
)

var testLimits = Limits{DefaultMinutes: 60, MaxMinutes: 1440, DefaultViews: 1, MaxViews: 10, MaxContent: 1 << 20}

func newService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewService(st, crypto.NewCodec(1000), crypto.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}, testLimits)
	return svc, st
}

func TestCreate_TextThenView(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateParams{
		Text:        "launch codes",
		Password:    "hunter2",
		Policy:      models.ViewsPolicy(2),
		NotifyEmail: "Owner <owner@example.com>",
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := created.Secret
	if rec.ID == "" || rec.ViewCount != 0 || rec.IsExpired || rec.File != nil {
		t.Fatalf("bad record: %+v", rec)
	}
	if created.Password != "" {
		t.Fatalf("password echoed back although the caller chose it")
	}
	if rec.NotifyTarget != "owner@example.com" {
		t.Fatalf("notify target %q", rec.NotifyTarget)
	}
	if strings.Contains(rec.Envelope, "launch") || strings.Contains(rec.PasswordVerifier, "hunter2") {
		t.Fatalf("plaintext or password persisted")
	}

	g := gate.New(st, crypto.NewCodec(1000))
	grant, err := g.Attempt(ctx, rec.ID, "hunter2", gate.Viewer{})
	if err != nil {
		t.Fatal(err)
	}
	if grant.Content.Text != "launch codes" {
		t.Fatalf("content %q", grant.Content.Text)
	}
}

func TestCreate_FileGoesThroughEnvelope(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	data := []byte("%PDF-1.7 binary\x00\x01")

	created, err := svc.Create(ctx, CreateParams{
		File:     &models.File{Name: "report.pdf", Data: data},
		Password: "pw",
		Policy:   models.TimePolicy(15),
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := created.Secret
	if rec.File == nil || rec.File.Name != "report.pdf" || rec.File.MimeType != "application/octet-stream" {
		t.Fatalf("file meta %+v", rec.File)
	}
	grant, err := gate.New(st, crypto.NewCodec(1000)).Attempt(ctx, rec.ID, "pw", gate.Viewer{})
	if err != nil {
		t.Fatal(err)
	}
	if grant.Content.File == nil || string(grant.Content.File.Data) != string(data) {
		t.Fatalf("file bytes did not round trip")
	}
}

func TestCreate_GeneratedPassword(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateParams{Text: "x", GeneratePassword: true, Policy: models.ViewsPolicy(1)})
	if err != nil {
		t.Fatal(err)
	}
	if created.Password == "" {
		t.Fatalf("generated password not returned")
	}
	if _, err := gate.New(st, crypto.NewCodec(1000)).Attempt(ctx, created.Secret.ID, created.Password, gate.Viewer{}); err != nil {
		t.Fatalf("view with generated password: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tests := []struct {
		name string
		p    CreateParams
	}{
		{"no content", CreateParams{Password: "pw", Policy: models.ViewsPolicy(1)}},
		{"both contents", CreateParams{Text: "x", File: &models.File{Name: "a"}, Password: "pw", Policy: models.ViewsPolicy(1)}},
		{"file without name", CreateParams{File: &models.File{Data: []byte("x")}, Password: "pw", Policy: models.ViewsPolicy(1)}},
		{"no password", CreateParams{Text: "x", Policy: models.ViewsPolicy(1)}},
		{"unknown policy", CreateParams{Text: "x", Password: "pw", Policy: models.ExpiryPolicy{Kind: "forever", Value: 1}}},
		{"bad email", CreateParams{Text: "x", Password: "pw", Policy: models.ViewsPolicy(1), NotifyEmail: "not-an-email"}},
		{"too large", CreateParams{Text: strings.Repeat("x", testLimits.MaxContent+1), Password: "pw", Policy: models.ViewsPolicy(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.p); !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCreate_PolicyDefaultsAndClamp(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	tests := []struct {
		in   models.ExpiryPolicy
		want int
	}{
		{models.TimePolicy(0), testLimits.DefaultMinutes},
		{models.TimePolicy(5000), testLimits.MaxMinutes},
		{models.ViewsPolicy(0), testLimits.DefaultViews},
		{models.ViewsPolicy(99), testLimits.MaxViews},
		{models.ViewsPolicy(3), 3},
	}
	for _, tt := range tests {
		created, err := svc.Create(ctx, CreateParams{Text: "x", Password: "pw", Policy: tt.in})
		if err != nil {
			t.Fatal(err)
		}
		if created.Secret.Policy.Value != tt.want {
			t.Fatalf("%+v: got %d want %d", tt.in, created.Secret.Policy.Value, tt.want)
		}
	}
}

func TestStatusAndActiveCount(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	a, _ := svc.Create(ctx, CreateParams{Text: "a", Password: "pw", Policy: models.TimePolicy(10)})
	b, _ := svc.Create(ctx, CreateParams{Text: "b", Password: "pw", Policy: models.ViewsPolicy(1)})
	if err := st.CompareAndUpdate(ctx, b.Secret.ID, 0, models.ViewState{ViewCount: 1, IsExpired: true}); err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return base.Add(4 * time.Minute) }
	status, err := svc.Status(ctx, a.Secret.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Exists || status.Expired || status.Remaining == nil || status.Remaining.Value != 6 || status.Kind != models.ContentText {
		t.Fatalf("status %+v", status)
	}
	status, _ = svc.Status(ctx, b.Secret.ID)
	if !status.Expired || status.Remaining != nil {
		t.Fatalf("expired status %+v", status)
	}
	status, _ = svc.Status(ctx, "missing")
	if status.Exists {
		t.Fatalf("missing secret reported as existing")
	}

	n, err := svc.ActiveCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("active count %d %v", n, err)
	}
	svc.now = func() time.Time { return base.Add(11 * time.Minute) }
	if n, _ := svc.ActiveCount(ctx); n != 0 {
		t.Fatalf("active count after time expiry: %d", n)
	}
}
