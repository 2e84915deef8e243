package postgres

import (
	"database/sql"

	_ "github.com/lib/pq" // Import the PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// Driver - fot now we only support postgres
const Driver = "postgres"

// NewDb creates a new database connection using the dbUrl
// It returns the *sql.DB object representing the connection.
func NewDb(connStr string, skipMigration bool) *sql.DB {
	db, err := sql.Open(Driver, connStr)
	if err != nil {
		log.Fatal().Err(err).Str("c", "postgres").Msg("could not open postgres connection")
	}
	// Bench runs save reports concurrently with API reads.
	db.SetMaxOpenConns(25)
	if err = db.Ping(); err != nil {
		log.Fatal().Err(err).Str("c", "postgres").Msg("ping failed")
	}
	if !skipMigration {
		if err = Migrate(db); err != nil {
			log.Fatal().Err(err).Str("c", "postgres").Msg("failed to execute migration")
		}
	}
	return db
}

// Migrate applies every migration in a single transaction. Each
// statement is idempotent, so running it on a migrated database is a no-op.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, query := range migrations {
		if _, err = tx.Exec(query); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
