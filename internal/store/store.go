package store

import (
	"context"
	"errors"

	"secret.share/internal/models"
)

var (
	ErrNotFound = errors.New("secret not found")
	ErrExists   = errors.New("secret already exists")
	// ErrConflict means the record moved on since it was read: another view
	// advanced the counter or the record became expired.
	ErrConflict = errors.New("secret was modified concurrently")
)

type Store interface {
	Create(ctx context.Context, secret *models.Secret) error
	Get(ctx context.Context, id string) (*models.Secret, error)
	// CompareAndUpdate replaces the view state only while the stored view
	// count equals expectedViews and the record is not expired.
	CompareAndUpdate(ctx context.Context, id string, expectedViews int, next models.ViewState) error
	List(ctx context.Context) ([]*models.Secret, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
