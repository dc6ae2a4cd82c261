package app

import (
	"database/sql"
	nativeerrors "errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lumicore/lumid/embedded"
	"github.com/lumicore/lumid/errors"
	"go.uber.org/zap"
)

// defaultMaxDBConnections is the maximum number of database connections that
// is used when no other one is provided in the Config.
const defaultMaxDBConnections = 16

// pgErrCodeUndefinedTable is the PostgreSQL error code for querying a relation
// that does not exist.
const pgErrCodeUndefinedTable = "42P01"

// dbVersionKey is the key the schema version is stored under in the lumid
// key-value table.
const dbVersionKey = "db-version"

// dbVersion identifies a schema version. The version of a set-up database is
// read from the lumid key-value table; a missing table means the database was
// never initialized.
type dbVersion string

// dbVersionZero marks a database that has not been initialized yet.
const dbVersionZero dbVersion = "0"

// dbMigration is a schema version together with the SQL that migrates the
// previous version up to it.
type dbMigration struct {
	version dbVersion
	up      string
}

// dbMigrations lists all migrations in version order. A database at version n
// runs every migration that follows n in this list.
var dbMigrations = []dbMigration{
	{
		version: "1.0",
		up:      embedded.DBMigration1x0,
	},
}

// connectDB connects to the database with the given connection string,
// verifies the connection and brings the schema up to date. Returns the ready
// connection pool.
func connectDB(logger *zap.Logger, connectionStr string, maxDBConnections int) (*sql.DB, error) {
	dbPool, err := sql.Open("pgx", connectionStr)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Err:     err,
			Message: "connect to database",
			Details: errors.Details{"connectionStr": connectionStr},
		}
	}
	dbPool.SetMaxOpenConns(maxDBConnections)
	err = testDBConnection(dbPool)
	if err != nil {
		return nil, errors.Wrap(err, "test db connection", nil)
	}
	err = migrateDB(logger, dbPool)
	if err != nil {
		return nil, errors.Wrap(err, "migrate database", nil)
	}
	return dbPool, nil
}

// testDBConnection tests the database connection by simply querying 1.
func testDBConnection(db *sql.DB) error {
	q, _, err := goqu.Select(goqu.V(1)).ToSQL()
	if err != nil {
		return errors.NewQueryToSQLError(err, nil)
	}
	var got int
	err = db.QueryRow(q).Scan(&got)
	if err != nil {
		return errors.NewScanDBRowError(err, "test query failed", q)
	}
	if got != 1 {
		return errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Message: fmt.Sprintf("test db connection: expected 1 as result but got %d", got),
			Details: errors.Details{"got": got},
		}
	}
	return nil
}

// migrateDB determines the current schema version and runs all pending
// migrations together with the version bump in a single transaction.
func migrateDB(logger *zap.Logger, db *sql.DB) error {
	current, err := currentDBVersion(db)
	if err != nil {
		return errors.Wrap(err, "retrieve current db version", nil)
	}
	logger.Info(fmt.Sprintf("current database version: %v", current))
	pending, err := pendingDBMigrations(current)
	if err != nil {
		return errors.Wrap(err, "determine pending db migrations", nil)
	}
	if len(pending) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	for i, migration := range pending {
		logger.Info(fmt.Sprintf("performing database migration %d/%d...", i+1, len(pending)))
		_, err = tx.Exec(migration.up)
		if err != nil {
			rollbackTx(logger, tx, "database migration failed")
			return errors.NewExecQueryError(err, "exec migration", migration.up)
		}
	}
	err = writeDBVersion(tx, current, pending[len(pending)-1].version)
	if err != nil {
		rollbackTx(logger, tx, "update database version failed")
		return errors.Wrap(err, "write db version", nil)
	}
	err = tx.Commit()
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	return nil
}

// writeDBVersion records the given next version in the lumid key-value table
// within the given transaction. Fresh databases get the version row inserted,
// initialized ones get it updated.
func writeDBVersion(tx *sql.Tx, current dbVersion, next dbVersion) error {
	var q string
	var err error
	if current == dbVersionZero {
		q, _, err = goqu.Dialect("postgres").Insert(goqu.T("lumid")).
			Rows(goqu.Record{
				"key":   dbVersionKey,
				"value": next,
			}).ToSQL()
	} else {
		q, _, err = goqu.Dialect("postgres").Update(goqu.T("lumid")).
			Set(goqu.Record{"value": next}).
			Where(goqu.C("key").Eq(dbVersionKey)).ToSQL()
	}
	if err != nil {
		return errors.NewQueryToSQLError(err, errors.Details{"next_version": next})
	}
	_, err = tx.Exec(q)
	if err != nil {
		return errors.NewExecQueryError(err, "update database version", q)
	}
	return nil
}

// pendingDBMigrations returns the migrations that still need to run for a
// database at the given version. dbVersionZero yields all migrations, an
// unknown version is an error.
func pendingDBMigrations(current dbVersion) ([]dbMigration, error) {
	if current == dbVersionZero {
		return dbMigrations, nil
	}
	at := -1
	for i, migration := range dbMigrations {
		if migration.version != current {
			continue
		}
		if at != -1 {
			return nil, errors.Error{
				Code:    errors.ErrInternal,
				Kind:    errors.KindShouldNotHappen,
				Message: fmt.Sprintf("duplicate database version %v in available migrations", current),
				Details: errors.Details{"version": current},
			}
		}
		at = i
	}
	if at == -1 {
		return nil, errors.NewResourceNotFoundError(fmt.Sprintf("no database version found matching %v", current),
			errors.Details{"version": current})
	}
	return dbMigrations[at+1:], nil
}

// currentDBVersion reads the schema version from the lumid key-value table.
// A missing relation means the database is fresh and dbVersionZero is
// returned.
func currentDBVersion(db *sql.DB) (dbVersion, error) {
	q, _, err := goqu.Dialect("postgres").From(goqu.T("lumid")).
		Select(goqu.C("value")).
		Where(goqu.C("key").Eq(dbVersionKey)).ToSQL()
	if err != nil {
		return "", errors.NewQueryToSQLError(err, nil)
	}
	var version string
	err = db.QueryRow(q).Scan(&version)
	if err != nil {
		var pgErr *pgconn.PgError
		if nativeerrors.As(err, &pgErr) && pgErr.Code == pgErrCodeUndefinedTable {
			return dbVersionZero, nil
		}
		return "", errors.NewScanDBRowError(err, "retrieve database version", q)
	}
	return dbVersion(version), nil
}

// rollbackTx rolls back the given sql.Tx. The encapsulation is needed because
// rolling back might return an error which does not need to be returned but
// definitely logged with the original reason the rollback was performed.
func rollbackTx(logger *zap.Logger, tx *sql.Tx, reason string) {
	err := tx.Rollback()
	if err != nil {
		errors.Log(logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindDBRollback,
			Message: "rollback tx",
			Err:     err,
			Details: errors.Details{"rollbackReason": reason},
		})
	}
}
