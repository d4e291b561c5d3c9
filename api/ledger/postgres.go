// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package ledger

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/z5labs/drivethru/order"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	db := stdlib.OpenDB(*pool.Config().ConnConfig.Copy())
	defer func() { _ = db.Close() }()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: "drivethru_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Postgres is a [Ledger] backed by the history table. Commands are
// serialized with a table lock.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres expects the schema to have been migrated.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool: pool,
		now:  time.Now,
	}
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Apply implements [Ledger].
func (p *Postgres) Apply(ctx context.Context, cmd Command) (*Result, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	_, err = tx.Exec(ctx, `LOCK TABLE history IN EXCLUSIVE MODE`)
	if err != nil {
		return nil, fmt.Errorf("failed to lock history: %w", err)
	}

	state, err := load(ctx, tx)
	if err != nil {
		return nil, err
	}

	res, err := state.Apply(cmd, p.now().UTC())
	if err != nil || res.Entry == nil {
		return res, err
	}

	e := state.Entries[len(state.Entries)-1]
	var cancelsOrder *int
	if e.CancelsOrder != 0 {
		cancelsOrder = &e.CancelsOrder
	}

	_, err = tx.Exec(
		ctx,
		`INSERT INTO history (id, action_type, items, created_at, display_message, cancels_order, cancels_all)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, string(e.ActionType), e.Items, e.Timestamp.Time, e.DisplayMessage, cancelsOrder, e.CancelsAll,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return res, nil
}

// History implements [Ledger].
func (p *Postgres) History(ctx context.Context) ([]order.HistoryEntry, error) {
	state, err := load(ctx, p.pool)
	if err != nil {
		return nil, err
	}
	return state.History(), nil
}

// Totals implements [Ledger].
func (p *Postgres) Totals(ctx context.Context) (order.Totals, error) {
	state, err := load(ctx, p.pool)
	if err != nil {
		return order.Totals{}, err
	}
	return state.Totals, nil
}

type querier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

func load(ctx context.Context, q querier) (*State, error) {
	rows, err := q.Query(
		ctx,
		`SELECT id, action_type, items, created_at, display_message, cancels_order, cancels_all
		FROM history ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var action string
		var createdAt time.Time
		var cancelsOrder *int
		err := row.Scan(&e.ID, &action, &e.Items, &createdAt, &e.DisplayMessage, &cancelsOrder, &e.CancelsAll)
		if err != nil {
			return e, err
		}

		e.ActionType = order.ActionType(action)
		e.Timestamp = order.Timestamp{Time: createdAt.UTC()}
		if cancelsOrder != nil {
			e.CancelsOrder = *cancelsOrder
		}
		if e.Items == nil {
			e.Items = []order.Item{}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return Replay(entries), nil
}
