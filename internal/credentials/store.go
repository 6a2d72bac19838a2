// Package credentials persists bridge application keys obtained by pairing.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no credential matches the lookup.
var ErrNotFound = errors.New("credential not found")

// Credential is an application key for one bridge.
type Credential struct {
	ID        string
	BridgeID  string
	Host      string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a SQLite-backed credential store keyed by bridge host.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts or replaces the credential for cred.Host.
// A fresh ID is generated when cred.ID is empty; the existing row keeps its ID.
func (s *Store) Save(ctx context.Context, cred Credential) (*Credential, error) {
	if cred.Host == "" {
		return nil, errors.New("credential host is required")
	}
	if cred.Username == "" {
		return nil, errors.New("credential username is required")
	}
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}

	now := time.Now().UTC().UnixNano()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bridge_credentials (id, host, bridge_id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			bridge_id = excluded.bridge_id,
			username = excluded.username,
			updated_at = excluded.updated_at
	`, cred.ID, cred.Host, cred.BridgeID, cred.Username, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	log.Debug().Str("host", cred.Host).Str("bridge_id", cred.BridgeID).Msg("Credential saved")

	return s.Get(ctx, cred.Host)
}

// Get returns the credential for a bridge host.
func (s *Store) Get(ctx context.Context, host string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, host, bridge_id, username, created_at, updated_at
		FROM bridge_credentials WHERE host = ?
	`, host)
	return scanCredential(row)
}

// Latest returns the most recently saved credential.
func (s *Store) Latest(ctx context.Context) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, host, bridge_id, username, created_at, updated_at
		FROM bridge_credentials ORDER BY updated_at DESC, rowid DESC LIMIT 1
	`)
	return scanCredential(row)
}

// List returns all credentials ordered by host.
func (s *Store) List(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, host, bridge_id, username, created_at, updated_at
		FROM bridge_credentials ORDER BY host
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}

	return creds, rows.Err()
}

// Delete removes the credential for a bridge host.
// Returns false if nothing was stored for it.
func (s *Store) Delete(ctx context.Context, host string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bridge_credentials WHERE host = ?`, host)
	if err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*Credential, error) {
	var cred Credential
	var createdAt, updatedAt int64

	err := row.Scan(&cred.ID, &cred.Host, &cred.BridgeID, &cred.Username, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}

	cred.CreatedAt = time.Unix(0, createdAt).UTC()
	cred.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &cred, nil
}
