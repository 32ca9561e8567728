package gate

import (
	"fmt"
	"time"

	"secret.share/internal/models"
)

// Remaining is what is left of a secret's budget: whole minutes (rounded
// up) for time policies, views for view policies. Never negative.
type Remaining struct {
	Kind  models.PolicyKind `json:"kind"`
	Value int               `json:"value"`
}

func RemainingAfter(p models.ExpiryPolicy, createdAt, now time.Time, views int) Remaining {
	r := Remaining{Kind: p.Kind}
	switch p.Kind {
	case models.PolicyTime:
		left := p.Duration() - now.Sub(createdAt)
		if left > 0 {
			r.Value = int((left + time.Minute - 1) / time.Minute)
		}
	case models.PolicyViews:
		r.Value = max(p.Value-views, 0)
	}
	return r
}

func (r Remaining) Message() string {
	unit := "view"
	if r.Kind == models.PolicyTime {
		unit = "minute"
	}
	if r.Value != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s remaining", r.Value, unit)
}
