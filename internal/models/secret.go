package models

import (
	"errors"
	"fmt"
	"time"
)

type PolicyKind string

const (
	PolicyTime  PolicyKind = "time"
	PolicyViews PolicyKind = "views"
)

// ExpiryPolicy is either a time budget in minutes or a view budget.
// Value holds the minutes or the maximum number of views depending on Kind.
type ExpiryPolicy struct {
	Kind  PolicyKind `json:"kind"`
	Value int        `json:"value"`
}

func TimePolicy(minutes int) ExpiryPolicy { return ExpiryPolicy{Kind: PolicyTime, Value: minutes} }

func ViewsPolicy(maxViews int) ExpiryPolicy { return ExpiryPolicy{Kind: PolicyViews, Value: maxViews} }

func (p ExpiryPolicy) Validate() error {
	switch p.Kind {
	case PolicyTime, PolicyViews:
	default:
		return fmt.Errorf("unknown expiry kind %q", p.Kind)
	}
	if p.Value <= 0 {
		return errors.New("expiry value must be positive")
	}
	return nil
}

// Duration is the time budget of a time policy and zero otherwise.
func (p ExpiryPolicy) Duration() time.Duration {
	if p.Kind != PolicyTime {
		return 0
	}
	return time.Duration(p.Value) * time.Minute
}

// Reached reports whether the policy condition holds for the given view
// count and age.
func (p ExpiryPolicy) Reached(views int, createdAt, now time.Time) bool {
	switch p.Kind {
	case PolicyViews:
		return views >= p.Value
	case PolicyTime:
		return now.Sub(createdAt) >= p.Duration()
	}
	return false
}

type FileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

type Secret struct {
	ID               string       `json:"id"`
	Envelope         string       `json:"-"`
	PasswordVerifier string       `json:"-"`
	Policy           ExpiryPolicy `json:"expiry"`
	ViewCount        int          `json:"view_count"`
	IsExpired        bool         `json:"is_expired"`
	CreatedAt        time.Time    `json:"created_at"`
	File             *FileMeta    `json:"file,omitempty"`
	NotifyTarget     string       `json:"-"`
}

// Expired is the effective expiry status: the cached flag, or the policy
// condition evaluated at now.
func (s *Secret) Expired(now time.Time) bool {
	return s.IsExpired || s.Policy.Reached(s.ViewCount, s.CreatedAt, now)
}

// ViewState is the mutable part of a record.
type ViewState struct {
	ViewCount int
	IsExpired bool
}

func (s *Secret) State() ViewState {
	return ViewState{ViewCount: s.ViewCount, IsExpired: s.IsExpired}
}

// AfterView computes the state a successful view at now moves the record to.
func (s *Secret) AfterView(now time.Time) ViewState {
	views := s.ViewCount + 1
	return ViewState{
		ViewCount: views,
		IsExpired: s.IsExpired || s.Policy.Reached(views, s.CreatedAt, now),
	}
}

func (s *Secret) Clone() *Secret {
	cp := *s
	if s.File != nil {
		f := *s.File
		cp.File = &f
	}
	return &cp
}
