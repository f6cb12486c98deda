package driver

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"localization-helpers/internal/config"
	"localization-helpers/internal/langfile"
	"localization-helpers/internal/lemma"
)

const defaultTable = "translations"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// TranslationStore persists group values keyed by locale.
type TranslationStore interface {
	Upsert(ctx context.Context, locale, group string, values lemma.Flat) (int, error)
	Load(ctx context.Context, locale, group string) (lemma.Flat, error)
	Close()
}

// DBTX is the subset of pgx used by Queries.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Queries implements TranslationStore on PostgreSQL.
type Queries struct {
	db    DBTX
	table string
	close func()
}

// NewQueries wraps db. table must be a plain or schema-qualified identifier.
func NewQueries(db DBTX, table string) (*Queries, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Queries{db: db, table: table, close: func() {}}, nil
}

// EnsureSchema creates the translations table when missing.
func (q *Queries) EnsureSchema(ctx context.Context) error {
	_, err := q.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	locale TEXT NOT NULL,
	grp TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (locale, grp, key)
)`, q.table))
	if err != nil {
		return fmt.Errorf("ensure translations table: %w", err)
	}
	return nil
}

// Upsert writes every value of the group in one batch.
func (q *Queries) Upsert(ctx context.Context, locale, group string, values lemma.Flat) (int, error) {
	sql := fmt.Sprintf(`INSERT INTO %s (locale, grp, key, value, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (locale, grp, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, q.table)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	keys := lemma.SortedKeys(values)
	for _, key := range keys {
		batch.Queue(sql, locale, group, key, values[key], now)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for range keys {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert translation: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// Load returns the stored values of a group.
func (q *Queries) Load(ctx context.Context, locale, group string) (lemma.Flat, error) {
	rows, err := q.db.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s WHERE locale = $1 AND grp = $2`, q.table), locale, group)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	values := make(lemma.Flat)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return values, nil
}

// Close releases the underlying pool.
func (q *Queries) Close() {
	q.close()
}

// Postgres keeps translations in a PostgreSQL table.
type Postgres struct {
	name     string
	db       TranslationStore
	store    *langfile.Store
	messages *Messages
}

// NewPostgres connects to cfg.DSN and ensures the table exists.
func NewPostgres(name string, cfg config.DriverConfig, deps Deps) (Driver, error) {
	if cfg.DSN == "" {
		return nil, &DriverError{Message: fmt.Sprintf("Driver [%s] requires a dsn", name)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, &DriverError{Message: "Connect PostgreSQL", Cause: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &DriverError{Message: "Ping PostgreSQL", Cause: err}
	}
	log.Info().Msg("Connected to PostgreSQL")

	q, err := NewQueries(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, &DriverError{Message: "Configure PostgreSQL", Cause: err}
	}
	q.close = pool.Close
	if err := q.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, &DriverError{Message: "Prepare PostgreSQL", Cause: err}
	}

	return NewPostgresWithStore(name, q, deps), nil
}

// NewPostgresWithStore creates the driver over an existing store.
func NewPostgresWithStore(name string, db TranslationStore, deps Deps) *Postgres {
	return &Postgres{name: name, db: db, store: deps.Store, messages: NewMessages()}
}

// Messages implements Driver.
func (p *Postgres) Messages() *Messages { return p.messages }

// Put stores the groups' values.
func (p *Postgres) Put(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		values, err := GroupValues(p.store, locale, group)
		if err != nil {
			return err
		}
		n, err := p.db.Upsert(ctx, locale, group, values)
		if err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot store group [%s]", group), Cause: err}
		}
		p.messages.Add("Group [%s] stored (%d keys)", group, n)
	}
	return nil
}

// Get loads the groups' values and merges them into the language files.
func (p *Postgres) Get(ctx context.Context, locale string, groups []string) error {
	for _, group := range groups {
		values, err := p.db.Load(ctx, locale, group)
		if err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot load group [%s]", group), Cause: err}
		}
		if len(values) == 0 {
			p.messages.AddError("Group [%s] has no stored translations for [%s]", group, locale)
			continue
		}
		if err := p.store.Merge(locale, group, values); err != nil {
			return &DriverError{Message: fmt.Sprintf("Cannot write group [%s]", group), Cause: err}
		}
		p.messages.Add("Group [%s] imported successfully", group)
	}
	return nil
}

// Close releases the database connection.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
