// Package sqldriver implements session.Store over any SQL database ent
// supports, using ent's dialect-aware query builders and schema migration.
package sqldriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
)

// Driver provides session storage on an ent SQL driver.
// It is database-agnostic and is embedded by the sqlite and postgres stores.
type Driver struct {
	drv *entsql.Driver

	mu     sync.RWMutex
	closed bool
}

// New wraps drv and runs the append-only schema migration.
func New(ctx context.Context, drv *entsql.Driver) (*Driver, error) {
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrate.Create(ctx, Tables...); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{drv: drv}, nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

func (d *Driver) checkOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return session.ErrStoreClosed
	}
	return nil
}

// GetOrCreate registers the session if absent and returns its transcript.
func (d *Driver) GetOrCreate(ctx context.Context, sessionID string) (*session.Session, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	b := d.builder()

	query, args := b.Insert(SessionsTable.Name).
		Columns("id", "created_at").
		Values(sessionID, time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.DoNothing(),
		).
		Query()
	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	query, args = b.Select("role", "content", "created_at").
		From(b.Table(TurnsTable.Name)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("id").
		Query()

	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	out := &session.Session{ID: sessionID, Turns: []session.Turn{}}
	for rows.Next() {
		var (
			role string
			t    session.Turn
		)
		if err := rows.Scan(&role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Role = llm.Role(role)
		out.Turns = append(out.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return out, nil
}

// Append inserts all turns in one statement inside a transaction.
func (d *Driver) Append(ctx context.Context, sessionID string, turns ...session.Turn) (err error) {
	if err := d.checkOpen(); err != nil {
		return err
	}

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := sessionExists(ctx, tx, d.builder(), sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return session.ErrSessionNotFound
	}

	if len(turns) > 0 {
		insert := d.builder().Insert(TurnsTable.Name).
			Columns("session_id", "role", "content", "created_at")
		for _, t := range turns {
			createdAt := t.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			insert.Values(sessionID, string(t.Role), t.Content, createdAt.UTC())
		}

		query, args := insert.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("failed to insert turns: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit turns: %w", err)
	}

	return nil
}

func sessionExists(ctx context.Context, q dialect.ExecQuerier, b *entsql.DialectBuilder, sessionID string) (bool, error) {
	query, args := b.Select("id").
		From(b.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", sessionID)).
		Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	return found, nil
}

// Reset deletes every session and turn.
func (d *Driver) Reset(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	b := d.builder()
	for _, table := range []string{TurnsTable.Name, SessionsTable.Name} {
		query, args := b.Delete(table).Query()
		if err := d.drv.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.drv.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
