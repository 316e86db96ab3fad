package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-finder/internal/db"
	"github.com/sells-group/startup-finder/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS startups (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dedup_key      TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	funding_amount TEXT NOT NULL DEFAULT '',
	funding_round  TEXT NOT NULL DEFAULT '',
	funding_date   TIMESTAMPTZ,
	investors      JSONB NOT NULL DEFAULT '[]',
	industry       TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	company_size   TEXT NOT NULL DEFAULT '',
	company_url    TEXT NOT NULL DEFAULT '',
	linkedin_url   TEXT NOT NULL DEFAULT '',
	key_people     JSONB NOT NULL DEFAULT '[]',
	source         TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_startups_industry ON startups(industry);
CREATE INDEX IF NOT EXISTS idx_startups_funding_round ON startups(funding_round);
CREATE INDEX IF NOT EXISTS idx_startups_funding_date ON startups(funding_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Ping verifies the connection is still usable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

const pgStartupColumns = `id, name, description, funding_amount, funding_round, funding_date,
	investors, industry, location, company_size, company_url, linkedin_url,
	key_people, source, source_url, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, startup model.Startup) (*model.Startup, error) {
	key := startup.DedupKey()
	if key == "" {
		return nil, eris.New("postgres: cannot save startup with empty name")
	}

	existing, err := s.FindByName(ctx, startup.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		startup = reconcile(*existing, startup)
	}

	investorsJSON, peopleJSON, err := marshalLists(startup)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := startup.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO startups (id, dedup_key, name, description, funding_amount, funding_round,
			funding_date, investors, industry, location, company_size, company_url,
			linkedin_url, key_people, source, source_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (dedup_key) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			funding_amount = excluded.funding_amount,
			funding_round = excluded.funding_round,
			funding_date = excluded.funding_date,
			investors = excluded.investors,
			industry = excluded.industry,
			location = excluded.location,
			company_size = excluded.company_size,
			company_url = excluded.company_url,
			linkedin_url = excluded.linkedin_url,
			key_people = excluded.key_people,
			source = excluded.source,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at`,
		uuid.New().String(), key, startup.Name, startup.Description,
		startup.FundingAmount, startup.FundingRound, startup.FundingDate,
		investorsJSON, startup.Industry, startup.Location, startup.CompanySize,
		startup.CompanyURL, startup.LinkedInURL, peopleJSON,
		startup.Source, startup.SourceURL, createdAt, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert startup %s", startup.Name)
	}

	return s.FindByName(ctx, startup.Name)
}

func (s *PostgresStore) SaveAll(ctx context.Context, startups []model.Startup) (int, error) {
	saved := 0
	for _, startup := range startups {
		if _, err := s.Save(ctx, startup); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// ReplaceAll clears the table and bulk-loads the given records through
// the COPY protocol.
func (s *PostgresStore) ReplaceAll(ctx context.Context, startups []model.Startup) (int, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM startups`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear startups")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(startups))
	for _, startup := range startups {
		key := startup.DedupKey()
		if key == "" {
			continue
		}
		investorsJSON, peopleJSON, err := marshalLists(startup)
		if err != nil {
			return 0, err
		}
		createdAt := startup.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, []any{
			uuid.New().String(), key, startup.Name, startup.Description,
			startup.FundingAmount, startup.FundingRound, startup.FundingDate,
			investorsJSON, startup.Industry, startup.Location, startup.CompanySize,
			startup.CompanyURL, startup.LinkedInURL, peopleJSON,
			startup.Source, startup.SourceURL, createdAt, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "startups", []string{
		"id", "dedup_key", "name", "description", "funding_amount", "funding_round",
		"funding_date", "investors", "industry", "location", "company_size", "company_url",
		"linkedin_url", "key_people", "source", "source_url", "created_at", "updated_at",
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk load startups")
	}
	return int(n), nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*model.Startup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgStartupColumns+` FROM startups WHERE dedup_key = $1`,
		model.Startup{Name: name}.DedupKey(),
	)
	startup, err := scanStartup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find startup %s", name)
	}
	return startup, nil
}

func (s *PostgresStore) List(ctx context.Context, filter model.Filter) ([]model.Startup, error) {
	query := `SELECT ` + pgStartupColumns + ` FROM startups WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.MonthsBack > 0 {
		query += ` AND funding_date >= ` + arg(filter.Cutoff(time.Now().UTC()))
	}
	if len(filter.Industries) > 0 {
		query += ` AND industry = ANY(` + arg(filter.Industries) + `)`
	}
	if len(filter.Locations) > 0 {
		query += ` AND location = ANY(` + arg(filter.Locations) + `)`
	}
	if len(filter.FundingRounds) > 0 {
		query += ` AND funding_round = ANY(` + arg(filter.FundingRounds) + `)`
	}
	if len(filter.Sources) > 0 {
		// source holds the merged, comma-joined label list, so a label
		// match is substring, not equality.
		clauses := make([]string, 0, len(filter.Sources))
		for _, v := range filter.Sources {
			clauses = append(clauses, `source LIKE `+arg("%"+v+"%"))
		}
		query += ` AND (` + strings.Join(clauses, " OR ") + `)`
	}
	query += ` ORDER BY updated_at DESC, name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list startups")
	}
	defer rows.Close()

	var startups []model.Startup
	for rows.Next() {
		startup, err := scanStartup(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan startup")
		}
		startups = append(startups, *startup)
	}
	return startups, eris.Wrap(rows.Err(), "postgres: list startups iterate")
}
