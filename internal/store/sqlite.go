package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"secret.share/internal/models"
)

var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; the view counter relies on the guarded UPDATE
	// below, not on connection-level locking.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS secrets (
			id TEXT PRIMARY KEY,
			envelope TEXT NOT NULL,
			verifier TEXT NOT NULL,
			policy_kind TEXT NOT NULL,
			policy_value INTEGER NOT NULL,
			view_count INTEGER NOT NULL DEFAULT 0,
			is_expired INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			file_name TEXT,
			file_mime TEXT,
			notify_target TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

const secretColumns = `id, envelope, verifier, policy_kind, policy_value, view_count, is_expired, created_at, file_name, file_mime, notify_target`

func (s *SQLiteStore) Create(ctx context.Context, secret *models.Secret) error {
	var fileName, fileMime sql.NullString
	if secret.File != nil {
		fileName = sql.NullString{String: secret.File.Name, Valid: true}
		fileMime = sql.NullString{String: secret.File.MimeType, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO secrets(`+secretColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		secret.ID, secret.Envelope, secret.PasswordVerifier,
		string(secret.Policy.Kind), secret.Policy.Value,
		secret.ViewCount, secret.IsExpired, secret.CreatedAt.UTC().UnixNano(),
		fileName, fileMime, secret.NotifyTarget)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrExists
	}
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Secret, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+secretColumns+` FROM secrets WHERE id = ?`, id)
	secret, err := scanSecret(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return secret, err
}

func (s *SQLiteStore) CompareAndUpdate(ctx context.Context, id string, expectedViews int, next models.ViewState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE secrets SET view_count = ?, is_expired = ? WHERE id = ? AND view_count = ? AND is_expired = 0`,
		next.ViewCount, next.IsExpired, id, expectedViews)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM secrets WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Secret, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+secretColumns+` FROM secrets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Secret
	for rows.Next() {
		secret, err := scanSecret(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, secret)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSecret(row scanner) (*models.Secret, error) {
	var (
		secret             models.Secret
		kind               string
		createdAt          int64
		fileName, fileMime sql.NullString
	)
	if err := row.Scan(&secret.ID, &secret.Envelope, &secret.PasswordVerifier, &kind, &secret.Policy.Value,
		&secret.ViewCount, &secret.IsExpired, &createdAt, &fileName, &fileMime, &secret.NotifyTarget); err != nil {
		return nil, err
	}
	secret.Policy.Kind = models.PolicyKind(kind)
	secret.CreatedAt = time.Unix(0, createdAt).UTC()
	if fileName.Valid {
		secret.File = &models.FileMeta{Name: fileName.String, MimeType: fileMime.String}
	}
	return &secret, nil
}
