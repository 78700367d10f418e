// Package dict implements a persistent, expiring key-value mapping backed by
// SQLite.
//
// Every entry carries an absolute expiry deadline computed as now+lifespan at
// write time. There is no background sweeper: schema triggers delete expired
// rows as a side effect of inserts and value updates (lazy eviction), so an
// expired entry stays visible until the next mutating write purges it.
// Postponing an entry refreshes its deadline without touching its value, so
// postponement never triggers an eviction pass.
//
// All access happens inside a session obtained from a Manager; see
// Manager.Update, Manager.View and Manager.Begin. The on-disk format is
// stamped with an application identifier and a schema version, and legacy
// unversioned tables are migrated forward transparently.
package dict

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FocuswithJustin/ttldict/core/errors"
	"github.com/FocuswithJustin/ttldict/core/identifier"
	"github.com/FocuswithJustin/ttldict/core/serializer"
)

// Conn is the live mapping view bound to one session's transaction and one
// table. It is valid between Manager.Begin and the session's Commit or
// Rollback; it must not be retained afterwards.
type Conn struct {
	conn     *sql.Conn
	table    identifier.Identifier
	ser      serializer.Serializer
	caps     capabilities
	lifespan time.Duration
	readOnly bool
	log      *slog.Logger
}

// Lifespan returns the duration added to the current time when computing the
// expiry of future writes and postponements.
func (c *Conn) Lifespan() time.Duration { return c.lifespan }

// SetLifespan changes the lifespan for future writes and postponements in
// this session. Stored expiry stamps are unaffected.
func (c *Conn) SetLifespan(d time.Duration) { c.lifespan = d }

func (c *Conn) seconds() int64 { return int64(c.lifespan / time.Second) }

// Len returns the number of entries in the table, including expired rows not
// yet purged: reads alone never evict.
func (c *Conn) Len(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)
	if err := c.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "counting %s", c.table)
	}
	return n, nil
}

// Contains reports whether key is present.
func (c *Conn) Contains(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE key = ?`, c.table)
	var one int
	err := c.conn.QueryRowContext(ctx, query, key).Scan(&one)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, "looking up key %q", key)
	}
	return true, nil
}

// Get fetches and deserializes the value stored under key. It returns a
// NotFoundError if the key is absent.
func (c *Conn) Get(ctx context.Context, key string) (any, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, c.table)
	var data []byte
	err := c.conn.QueryRowContext(ctx, query, key).Scan(&data)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, errors.NewNotFound(key)
	case err != nil:
		return nil, errors.Wrapf(err, "fetching key %q", key)
	}
	return c.ser.Loads(data)
}

// Set stores value under key with expiry now+lifespan, replacing any previous
// entry. The insert/update triggers evict every expired row in the table as
// a side effect.
func (c *Conn) Set(ctx context.Context, key string, value any) error {
	if c.readOnly {
		return errors.NewReadOnly("set")
	}
	data, err := c.ser.Dumps(value)
	if err != nil {
		return errors.Wrapf(err, "serializing value for key %q", key)
	}

	if c.caps.upsert {
		query := fmt.Sprintf(`
			INSERT INTO %s (key, expire, value)
				VALUES (?, %s + ?, ?)
				ON CONFLICT (key) DO UPDATE
				SET value=excluded.value, expire=excluded.expire`,
			c.table, c.caps.now())
		if _, err := c.conn.ExecContext(ctx, query, key, c.seconds(), data); err != nil {
			return errors.Wrapf(err, "setting key %q", key)
		}
		return nil
	}

	// Fallback for engines without atomic upsert. The check-then-branch pair
	// has a race window under concurrent writers; tolerated on the legacy
	// engines that need it.
	exists, err := c.Contains(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		query := fmt.Sprintf(`UPDATE %s SET expire = %s + ?, value = ? WHERE key = ?`,
			c.table, c.caps.now())
		_, err = c.conn.ExecContext(ctx, query, c.seconds(), data, key)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (key, expire, value) VALUES (?, %s + ?, ?)`,
			c.table, c.caps.now())
		_, err = c.conn.ExecContext(ctx, query, key, c.seconds(), data)
	}
	if err != nil {
		return errors.Wrapf(err, "setting key %q", key)
	}
	return nil
}

// Delete removes key, returning a NotFoundError if it is absent. Deletion is
// not an eviction trigger point, so bulk deletes do not pay a sweep cost per
// row.
func (c *Conn) Delete(ctx context.Context, key string) error {
	if c.readOnly {
		return errors.NewReadOnly("delete")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, c.table)
	res, err := c.conn.ExecContext(ctx, query, key)
	if err != nil {
		return errors.Wrapf(err, "deleting key %q", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting key %q", key)
	}
	if n != 1 {
		return errors.NewNotFound(key)
	}
	return nil
}

// Clear removes every entry in the table.
func (c *Conn) Clear(ctx context.Context) error {
	if c.readOnly {
		return errors.NewReadOnly("clear")
	}
	query := fmt.Sprintf(`DELETE FROM %s`, c.table)
	if _, err := c.conn.ExecContext(ctx, query); err != nil {
		return errors.Wrapf(err, "clearing %s", c.table)
	}
	return nil
}

// Postpone pushes back the expiry of key to now+lifespan without touching its
// value. Absent keys are a no-op. Only the expire column changes, so the
// AFTER UPDATE OF value trigger stays silent and no eviction pass runs.
func (c *Conn) Postpone(ctx context.Context, key string) error {
	if c.readOnly {
		return errors.NewReadOnly("postpone")
	}
	query := fmt.Sprintf(`UPDATE %s SET expire = %s + ? WHERE key = ?`, c.table, c.caps.now())
	if _, err := c.conn.ExecContext(ctx, query, c.seconds(), key); err != nil {
		return errors.Wrapf(err, "postponing key %q", key)
	}
	return nil
}

// PostponeAll pushes back the expiry of every entry at once.
func (c *Conn) PostponeAll(ctx context.Context) error {
	if c.readOnly {
		return errors.NewReadOnly("postpone")
	}
	query := fmt.Sprintf(`UPDATE %s SET expire = %s + ?`, c.table, c.caps.now())
	if _, err := c.conn.ExecContext(ctx, query, c.seconds()); err != nil {
		return errors.Wrap(err, "postponing all keys")
	}
	return nil
}

// Stats describes the open database file and the bound table.
type Stats struct {
	ApplicationID int32 `json:"application_id"`
	SchemaVersion int   `json:"schema_version"`
	Entries       int   `json:"entries"`
}

// Stats reports the file stamps and the live entry count.
func (c *Conn) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := c.conn.QueryRowContext(ctx, `PRAGMA application_id`).Scan(&s.ApplicationID); err != nil {
		return Stats{}, errors.Wrap(err, "reading application_id")
	}
	if err := c.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&s.SchemaVersion); err != nil {
		return Stats{}, errors.Wrap(err, "reading user_version")
	}
	n, err := c.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.Entries = n
	return s, nil
}
