package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/startup-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS startups (
	id             TEXT PRIMARY KEY,
	dedup_key      TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	funding_amount TEXT NOT NULL DEFAULT '',
	funding_round  TEXT NOT NULL DEFAULT '',
	funding_date   DATETIME,
	investors      TEXT NOT NULL DEFAULT '[]',
	industry       TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	company_size   TEXT NOT NULL DEFAULT '',
	company_url    TEXT NOT NULL DEFAULT '',
	linkedin_url   TEXT NOT NULL DEFAULT '',
	key_people     TEXT NOT NULL DEFAULT '[]',
	source         TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_startups_industry ON startups(industry);
CREATE INDEX IF NOT EXISTS idx_startups_funding_round ON startups(funding_round);
CREATE INDEX IF NOT EXISTS idx_startups_funding_date ON startups(funding_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteStartupColumns = `id, name, description, funding_amount, funding_round, funding_date,
	investors, industry, location, company_size, company_url, linkedin_url,
	key_people, source, source_url, created_at, updated_at`

func (s *SQLiteStore) Save(ctx context.Context, startup model.Startup) (*model.Startup, error) {
	key := startup.DedupKey()
	if key == "" {
		return nil, eris.New("sqlite: cannot save startup with empty name")
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO startups (id, dedup_key, name, description, funding_amount, funding_round,
			funding_date, investors, industry, location, company_size, company_url,
			linkedin_url, key_people, source, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO UPDATE SET
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
		return nil, eris.Wrapf(err, "sqlite: upsert startup %s", startup.Name)
	}

	return s.FindByName(ctx, startup.Name)
}

func (s *SQLiteStore) SaveAll(ctx context.Context, startups []model.Startup) (int, error) {
	saved := 0
	for _, startup := range startups {
		if _, err := s.Save(ctx, startup); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// ReplaceAll clears the table and writes the given records, for runs
// that rebuild the dataset from scratch.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, startups []model.Startup) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM startups`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear startups")
	}

	now := time.Now().UTC()
	inserted := 0
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
		_, err = tx.ExecContext(ctx, `
			INSERT INTO startups (id, dedup_key, name, description, funding_amount, funding_round,
				funding_date, investors, industry, location, company_size, company_url,
				linkedin_url, key_people, source, source_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), key, startup.Name, startup.Description,
			startup.FundingAmount, startup.FundingRound, startup.FundingDate,
			investorsJSON, startup.Industry, startup.Location, startup.CompanySize,
			startup.CompanyURL, startup.LinkedInURL, peopleJSON,
			startup.Source, startup.SourceURL, createdAt, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert startup %s", startup.Name)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace")
	}
	return inserted, nil
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*model.Startup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteStartupColumns+` FROM startups WHERE dedup_key = ?`,
		model.Startup{Name: name}.DedupKey(),
	)
	startup, err := scanStartup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find startup %s", name)
	}
	return startup, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter model.Filter) ([]model.Startup, error) {
	query := `SELECT ` + sqliteStartupColumns + ` FROM startups WHERE 1=1`
	var args []any

	if filter.MonthsBack > 0 {
		query += ` AND funding_date >= ?`
		args = append(args, filter.Cutoff(time.Now().UTC()))
	}
	if len(filter.Industries) > 0 {
		query += ` AND industry IN (` + placeholders(len(filter.Industries)) + `)`
		for _, v := range filter.Industries {
			args = append(args, v)
		}
	}
	if len(filter.Locations) > 0 {
		query += ` AND location IN (` + placeholders(len(filter.Locations)) + `)`
		for _, v := range filter.Locations {
			args = append(args, v)
		}
	}
	if len(filter.FundingRounds) > 0 {
		query += ` AND funding_round IN (` + placeholders(len(filter.FundingRounds)) + `)`
		for _, v := range filter.FundingRounds {
			args = append(args, v)
		}
	}
	if len(filter.Sources) > 0 {
		// source holds the merged, comma-joined label list, so a label
		// match is substring, not equality.
		var likes []string
		for _, v := range filter.Sources {
			likes = append(likes, `source LIKE ?`)
			args = append(args, "%"+v+"%")
		}
		query += ` AND (` + strings.Join(likes, " OR ") + `)`
	}
	query += ` ORDER BY updated_at DESC, name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list startups")
	}
	defer rows.Close()

	var startups []model.Startup
	for rows.Next() {
		startup, err := scanStartup(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan startup")
		}
		startups = append(startups, *startup)
	}
	return startups, eris.Wrap(rows.Err(), "sqlite: list startups iterate")
}

// helpers

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func marshalLists(s model.Startup) (investors, people string, err error) {
	investorsJSON, err := json.Marshal(orEmpty(s.Investors))
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal investors")
	}
	peopleJSON, err := json.Marshal(s.KeyPeople)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal key people")
	}
	if s.KeyPeople == nil {
		peopleJSON = []byte("[]")
	}
	return string(investorsJSON), string(peopleJSON), nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStartup(row scannable) (*model.Startup, error) {
	var (
		s             model.Startup
		id            string
		fundingDate   sql.NullTime
		investorsJSON string
		peopleJSON    string
	)
	err := row.Scan(&id, &s.Name, &s.Description, &s.FundingAmount, &s.FundingRound,
		&fundingDate, &investorsJSON, &s.Industry, &s.Location, &s.CompanySize,
		&s.CompanyURL, &s.LinkedInURL, &peopleJSON, &s.Source, &s.SourceURL,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if fundingDate.Valid {
		d := fundingDate.Time.UTC()
		s.FundingDate = &d
	}
	if err := json.Unmarshal([]byte(investorsJSON), &s.Investors); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal investors")
	}
	if err := json.Unmarshal([]byte(peopleJSON), &s.KeyPeople); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal key people")
	}
	if len(s.Investors) == 0 {
		s.Investors = nil
	}
	if len(s.KeyPeople) == 0 {
		s.KeyPeople = nil
	}
	return &s, nil
}
