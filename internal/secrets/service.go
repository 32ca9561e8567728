package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"secret.share/internal/crypto"
	"secret.share/internal/gate"
	"secret.share/internal/models"
	"secret.share/internal/store"
)

// ErrInvalid wraps every validation failure of a create request.
var ErrInvalid = errors.New("invalid secret")

type Limits struct {
	DefaultMinutes int
	MaxMinutes     int
	DefaultViews   int
	MaxViews       int
	MaxContent     int
}

// CreateParams describes a new secret. Exactly one of Text and File is set.
type CreateParams struct {
	Text             string
	File             *models.File
	Password         string
	GeneratePassword bool
	Policy           models.ExpiryPolicy
	NotifyEmail      string
}

type Created struct {
	Secret *models.Secret
	// Password is set only when the server generated it.
	Password string
}

type Status struct {
	ID        string             `json:"id"`
	Exists    bool               `json:"exists"`
	Expired   bool               `json:"expired"`
	Kind      models.ContentKind `json:"kind,omitempty"`
	Remaining *gate.Remaining    `json:"remaining,omitempty"`
	CreatedAt time.Time          `json:"created_at,omitempty"`
}

type Service struct {
	store  store.Store
	codec  *crypto.Codec
	argon  crypto.Argon2Params
	limits Limits
	now    func() time.Time
}

func NewService(st store.Store, codec *crypto.Codec, argon crypto.Argon2Params, limits Limits) *Service {
	return &Service{store: st, codec: codec, argon: argon, limits: limits, now: time.Now}
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Created, error) {
	content, err := s.content(p)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy(p.Policy)
	if err != nil {
		return nil, err
	}
	if p.NotifyEmail != "" {
		addr, err := mail.ParseAddress(p.NotifyEmail)
		if err != nil {
			return nil, fmt.Errorf("%w: notify email: %v", ErrInvalid, err)
		}
		p.NotifyEmail = addr.Address
	}

	password := p.Password
	var generated string
	if password == "" {
		if !p.GeneratePassword {
			return nil, fmt.Errorf("%w: password is required", ErrInvalid)
		}
		generated = crypto.GeneratePassphrase()
		password = generated
	}

	plaintext, err := models.EncodeContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	envelope, err := s.codec.Encode(plaintext, password)
	if err != nil {
		return nil, fmt.Errorf("sealing secret: %w", err)
	}
	verifier, err := crypto.HashPassword(password, s.argon)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	secret := &models.Secret{
		ID:               uuid.NewString(),
		Envelope:         envelope,
		PasswordVerifier: verifier,
		Policy:           policy,
		CreatedAt:        s.now().UTC(),
		File:             content.Meta(),
		NotifyTarget:     p.NotifyEmail,
	}
	if err := s.store.Create(ctx, secret); err != nil {
		return nil, fmt.Errorf("saving secret: %w", err)
	}
	return &Created{Secret: secret, Password: generated}, nil
}

// Status reports public facts about a secret. It never touches the envelope.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	secret, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Status{ID: id}, nil
	}
	if err != nil {
		return Status{}, err
	}
	now := s.now()
	st := Status{
		ID:        id,
		Exists:    true,
		Expired:   secret.Expired(now),
		Kind:      models.ContentText,
		CreatedAt: secret.CreatedAt,
	}
	if secret.File != nil {
		st.Kind = models.ContentFile
	}
	if !st.Expired {
		r := gate.RemainingAfter(secret.Policy, secret.CreatedAt, now, secret.ViewCount)
		st.Remaining = &r
	}
	return st, nil
}

// ActiveCount is the number of secrets that can still be viewed.
func (s *Service) ActiveCount(ctx context.Context) (int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	n := 0
	for _, secret := range all {
		if !secret.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Secret, error) {
	return s.store.List(ctx)
}

func (s *Service) content(p CreateParams) (models.Content, error) {
	switch {
	case p.Text != "" && p.File != nil:
		return models.Content{}, fmt.Errorf("%w: provide either text or a file, not both", ErrInvalid)
	case p.File != nil:
		if p.File.Name == "" {
			return models.Content{}, fmt.Errorf("%w: file name is required", ErrInvalid)
		}
		if s.limits.MaxContent > 0 && len(p.File.Data) > s.limits.MaxContent {
			return models.Content{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalid, s.limits.MaxContent)
		}
		f := *p.File
		if f.MimeType == "" {
			f.MimeType = "application/octet-stream"
		}
		return models.FileContent(f), nil
	case p.Text != "":
		if s.limits.MaxContent > 0 && len(p.Text) > s.limits.MaxContent {
			return models.Content{}, fmt.Errorf("%w: text exceeds %d bytes", ErrInvalid, s.limits.MaxContent)
		}
		return models.TextContent(p.Text), nil
	}
	return models.Content{}, fmt.Errorf("%w: content is required", ErrInvalid)
}

func (s *Service) policy(p models.ExpiryPolicy) (models.ExpiryPolicy, error) {
	switch p.Kind {
	case models.PolicyTime:
		p.Value = clamp(p.Value, s.limits.DefaultMinutes, s.limits.MaxMinutes)
	case models.PolicyViews:
		p.Value = clamp(p.Value, s.limits.DefaultViews, s.limits.MaxViews)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

func clamp(val, defaultVal, maxVal int) int {
	if val <= 0 {
		return defaultVal
	}
	if maxVal > 0 && val > maxVal {
		return maxVal
	}
	return val
}
