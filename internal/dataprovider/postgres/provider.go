package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/forscht/relock/internal/bench"
	dp "github.com/forscht/relock/internal/dataprovider"
)

type PGProvider struct {
	db *sql.DB
}

type Config struct {
	DbURL string `mapstructure:"db_url"`
}

func New(cfg *Config) dp.DataProvider {
	dbConn := NewDb(cfg.DbURL, false)
	log.Info().Str("c", "postgres").Msg("initialized postgres as dataprovider")

	return &PGProvider{dbConn}
}

func (pgp *PGProvider) Name() string {
	return "postgres"
}

func (pgp *PGProvider) Save(r *bench.Report) error {
	_, err := pgp.db.Exec(`
		INSERT INTO reports (id, stack, workers, ops, reads, writes, reentries, max_readers, violations, keys, started_at, elapsed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`, r.ID.Int64(), pq.Array(r.Stack), r.Workers, r.Ops, r.Reads, r.Writes, r.Reentries,
		r.MaxReaders, r.Violations, r.Keys, r.StartedAt, int64(r.Elapsed))
	return pqErrToOs(err)
}

func (pgp *PGProvider) Get(id snowflake.ID) (*bench.Report, error) {
	report, err := scanReport(pgp.db.QueryRow(`
		SELECT id, stack, workers, ops, reads, writes, reentries, max_readers, violations, keys, started_at, elapsed
		FROM reports
		WHERE id=$1;
	`, id.Int64()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dp.ErrNotExist
		}
		return nil, err
	}
	return report, nil
}

// List returns reports newest first. A limit of zero returns every report past offset.
func (pgp *PGProvider) List(limit, offset int) ([]*bench.Report, error) {
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := pgp.db.Query(`
		SELECT id, stack, workers, ops, reads, writes, reentries, max_readers, violations, keys, started_at, elapsed
		FROM reports
		ORDER BY id DESC
		LIMIT $1 OFFSET $2;
	`, lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]*bench.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (pgp *PGProvider) Delete(id snowflake.ID) error {
	res, err := pgp.db.Exec(`DELETE FROM reports WHERE id=$1;`, id.Int64())
	if err != nil {
		return pqErrToOs(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return dp.ErrNotExist
	}
	return nil
}

func (pgp *PGProvider) Close() error {
	return pgp.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*bench.Report, error) {
	var (
		r       bench.Report
		id      int64
		elapsed int64
	)
	err := row.Scan(&id, pq.Array(&r.Stack), &r.Workers, &r.Ops, &r.Reads, &r.Writes, &r.Reentries,
		&r.MaxReaders, &r.Violations, &r.Keys, &r.StartedAt, &elapsed)
	if err != nil {
		return nil, err
	}
	r.ID = snowflake.ID(id)
	r.Elapsed = time.Duration(elapsed)
	return &r, nil
}

// Handle custom PG error codes
func pqErrToOs(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // Unique violation error code
			return dp.ErrExist
		default:
			return err
		}
	}
	return err
}
