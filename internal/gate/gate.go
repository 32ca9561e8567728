// Package gate authorizes view attempts on stored secrets, decrypts them on
// success and advances the record's view accounting.
//
// A record moves from active to expired exactly once. Expiry happens either
// inside Attempt, when the view that satisfies the policy is recorded, or
// through the housekeeping sweep; nothing ever moves it back.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secret.share/internal/crypto"
	"secret.share/internal/logging"
	"secret.share/internal/models"
	"secret.share/internal/notify"
	"secret.share/internal/store"
)

var (
	ErrNotFound      = errors.New("secret not found")
	ErrExpired       = errors.New("secret has expired")
	ErrWrongPassword = errors.New("incorrect password")
	// ErrIntegrity means the verifier accepted the password but the stored
	// envelope did not open. It never reaches viewers in detail.
	ErrIntegrity = errors.New("stored secret failed integrity checks")
	// ErrConflict is transient: concurrent views kept winning the update.
	ErrConflict = errors.New("too many concurrent views, retry")
)

const DefaultUpdateAttempts = 8

// Store is the part of the record store the gate needs.
type Store interface {
	Get(ctx context.Context, id string) (*models.Secret, error)
	CompareAndUpdate(ctx context.Context, id string, expectedViews int, next models.ViewState) error
}

type Notifier interface {
	Notify(n notify.Notification)
}

// Viewer describes who is asking, for the owner's notification.
type Viewer struct {
	UserAgent string
	Location  string
}

// Grant is the result of an authorized view.
type Grant struct {
	SecretID  string
	Content   models.Content
	Remaining Remaining
	// Expired is true when this view used up the budget.
	Expired bool
}

type Gate struct {
	store    Store
	codec    *crypto.Codec
	notifier Notifier
	log      *logging.Logger
	now      func() time.Time
	attempts int
}

type Option func(*Gate)

func WithNotifier(n Notifier) Option { return func(g *Gate) { g.notifier = n } }

func WithLogger(l *logging.Logger) Option { return func(g *Gate) { g.log = l } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

// WithUpdateAttempts bounds how often a conflicting update is retried.
func WithUpdateAttempts(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.attempts = n
		}
	}
}

func New(st Store, codec *crypto.Codec, opts ...Option) *Gate {
	g := &Gate{
		store:    st,
		codec:    codec,
		log:      logging.Discard(),
		now:      time.Now,
		attempts: DefaultUpdateAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attempt tries to view secret id with password. Denials are reported as
// ErrNotFound, ErrExpired or ErrWrongPassword and never modify the record.
func (g *Gate) Attempt(ctx context.Context, id, password string, viewer Viewer) (*Grant, error) {
	rec, err := g.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Expired(g.now()) {
		return nil, ErrExpired
	}

	ok, err := crypto.VerifyPassword(rec.PasswordVerifier, password)
	if err != nil {
		g.log.Errorf("secret %s: unreadable password verifier: %v", rec.ID, err)
		return nil, ErrIntegrity
	}
	if !ok {
		return nil, ErrWrongPassword
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := g.open(rec, password)
	if err != nil {
		g.log.Errorf("secret %s: password verified but envelope rejected: %v", rec.ID, err)
		return nil, ErrIntegrity
	}

	next, now, err := g.advance(ctx, rec)
	if err != nil {
		return nil, err
	}

	if rec.NotifyTarget != "" && g.notifier != nil {
		g.notifier.Notify(notify.Notification{
			SecretID:    rec.ID,
			UserAgent:   viewer.UserAgent,
			Location:    viewer.Location,
			NotifyEmail: rec.NotifyTarget,
		})
	}

	return &Grant{
		SecretID:  rec.ID,
		Content:   content,
		Remaining: RemainingAfter(rec.Policy, rec.CreatedAt, now, next.ViewCount),
		Expired:   next.IsExpired,
	}, nil
}

// advance records one view with a guarded update, reloading the record
// when another view got there first. rec is refreshed in place.
func (g *Gate) advance(ctx context.Context, rec *models.Secret) (models.ViewState, time.Time, error) {
	for i := 0; i < g.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return models.ViewState{}, time.Time{}, err
		}
		now := g.now()
		if rec.Expired(now) {
			return models.ViewState{}, time.Time{}, ErrExpired
		}
		next := rec.AfterView(now)
		err := g.store.CompareAndUpdate(ctx, rec.ID, rec.ViewCount, next)
		switch {
		case err == nil:
			return next, now, nil
		case errors.Is(err, store.ErrConflict):
			g.log.Debugf("secret %s: view count moved, reloading", rec.ID)
			fresh, err := g.load(ctx, rec.ID)
			if err != nil {
				return models.ViewState{}, time.Time{}, err
			}
			*rec = *fresh
		case errors.Is(err, store.ErrNotFound):
			return models.ViewState{}, time.Time{}, ErrNotFound
		default:
			return models.ViewState{}, time.Time{}, fmt.Errorf("updating view count: %w", err)
		}
	}
	g.log.Warnf("secret %s: gave up after %d conflicting updates", rec.ID, g.attempts)
	return models.ViewState{}, time.Time{}, ErrConflict
}

func (g *Gate) load(ctx context.Context, id string) (*models.Secret, error) {
	rec, err := g.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading secret: %w", err)
	}
	return rec, nil
}

func (g *Gate) open(rec *models.Secret, password string) (models.Content, error) {
	plaintext, err := g.codec.Decode(rec.Envelope, password)
	if err != nil {
		return models.Content{}, err
	}
	content, err := models.DecodeContent(plaintext, crypto.IsLegacyEnvelope(rec.Envelope))
	if err != nil {
		return models.Content{}, err
	}
	if (rec.File != nil) != (content.Kind == models.ContentFile) {
		return models.Content{}, fmt.Errorf("record kind does not match payload kind %q", content.Kind)
	}
	return content, nil
}
