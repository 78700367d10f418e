package dict

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/FocuswithJustin/ttldict/core/errors"
)

// applicationID is the file-level stamp reserved for this store. Files
// carrying any other non-zero stamp belong to another application and are
// refused.
const applicationID int32 = 1820903862

// schemaVersion is the current on-disk layout version, recorded in the
// engine's user_version counter.
const schemaVersion = 1

// migrate brings the bound table to the current schema. It runs inside the
// session's transaction, so a crash mid-migration rolls back to the previous
// layout instead of leaving a half-migrated file.
//
// fileReadOnly gates the writes: a read-only file whose schema is already
// current passes verification; anything that would require writing fails.
func (c *Conn) migrate(ctx context.Context, path string, fileReadOnly bool) error {
	var appID int32
	if err := c.conn.QueryRowContext(ctx, `PRAGMA application_id`).Scan(&appID); err != nil {
		return errors.Wrap(err, "reading application_id")
	}
	switch {
	case appID == applicationID:
	case appID == 0:
		if !fileReadOnly {
			stmt := fmt.Sprintf(`PRAGMA application_id = %d`, applicationID)
			if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "stamping application_id")
			}
		}
	default:
		return errors.NewIncompatibleFile(path, appID)
	}

	var version int
	if err := c.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return errors.Wrap(err, "reading user_version")
	}
	if version > schemaVersion {
		return errors.NewUnsupportedSchema(version, schemaVersion)
	}
	if version == schemaVersion {
		return nil
	}
	if fileReadOnly {
		return errors.NewReadOnly("initialize the schema")
	}

	// A version-0 file is either fresh or written by a build predating the
	// version stamp; only the catalog tells the difference.
	var legacyFound bool
	{
		var one int
		err := c.conn.QueryRowContext(ctx,
			`SELECT 1 FROM sqlite_master WHERE type='table' AND name=?`,
			c.table.Value(),
		).Scan(&one)
		switch {
		case stderrors.Is(err, sql.ErrNoRows):
		case err != nil:
			return errors.Wrap(err, "checking for legacy table")
		default:
			legacyFound = true
		}
	}

	legacy := c.table.Suffix("_v0")
	if legacyFound {
		c.log.DebugContext(ctx, "migrating legacy table")
		steps := []string{
			fmt.Sprintf(`DROP INDEX IF EXISTS %s`, c.table.Suffix("_expire_index")),
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, c.table.Suffix("_insert_trigger")),
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, c.table.Suffix("_update_trigger")),
			fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, c.table, legacy),
		}
		for _, stmt := range steps {
			if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "renaming legacy table aside")
			}
		}
	}

	if err := c.createSchema(ctx); err != nil {
		return err
	}

	if legacyFound {
		copyStmt := fmt.Sprintf(
			`INSERT INTO %s (key, expire, value) SELECT key, expire, value FROM %s`,
			c.table, legacy)
		if _, err := c.conn.ExecContext(ctx, copyStmt); err != nil {
			return errors.Wrap(err, "copying legacy rows")
		}
		if _, err := c.conn.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, legacy)); err != nil {
			return errors.Wrap(err, "dropping legacy table")
		}
	}

	stamp := fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)
	if _, err := c.conn.ExecContext(ctx, stamp); err != nil {
		return errors.Wrap(err, "stamping user_version")
	}
	return nil
}

func (c *Conn) createSchema(ctx context.Context) error {
	// The autoincrement id makes default iteration follow insertion order,
	// with newly assigned keys always coming last.
	create := fmt.Sprintf(`
		CREATE TABLE %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
			key TEXT UNIQUE NOT NULL,
			expire INTEGER NOT NULL,
			value %s NOT NULL)%s`,
		c.table, c.caps.valueType(), c.caps.tableTrailer())

	index := fmt.Sprintf(`CREATE INDEX %s ON %s (expire)`,
		c.table.Suffix("_expire_index"), c.table)

	// Lazy eviction lives in the schema, not the code paths: every insert or
	// value update deletes all rows already past their deadline.
	insertTrigger := fmt.Sprintf(`
		CREATE TRIGGER %s
			AFTER INSERT ON %s
		BEGIN
			DELETE FROM %s WHERE expire <= %s;
		END`,
		c.table.Suffix("_insert_trigger"), c.table, c.table, c.caps.now())

	updateTrigger := fmt.Sprintf(`
		CREATE TRIGGER %s
			AFTER UPDATE OF value ON %s
		BEGIN
			DELETE FROM %s WHERE expire <= %s;
		END`,
		c.table.Suffix("_update_trigger"), c.table, c.table, c.caps.now())

	for _, stmt := range []string{create, index, insertTrigger, updateTrigger} {
		if _, err := c.conn.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating schema for table %q", c.table.Value())
		}
	}
	return nil
}
