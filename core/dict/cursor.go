package dict

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/ttldict/core/errors"
	"github.com/FocuswithJustin/ttldict/core/serializer"
)

// Keys opens a fresh cursor over the table's keys in the given order and
// direction. Cursors are independent: each call issues a new query and does
// not share iteration position with earlier ones. Visibility under
// concurrent mutation is the engine's transaction snapshot.
func (c *Conn) Keys(ctx context.Context, order Order, dir Direction) (*KeyCursor, error) {
	rows, err := c.cursorQuery(ctx, "key", order, dir)
	if err != nil {
		return nil, err
	}
	return &KeyCursor{rows: rows}, nil
}

// Values opens a fresh cursor over deserialized values.
func (c *Conn) Values(ctx context.Context, order Order, dir Direction) (*ValueCursor, error) {
	rows, err := c.cursorQuery(ctx, "value", order, dir)
	if err != nil {
		return nil, err
	}
	return &ValueCursor{rows: rows, ser: c.ser}, nil
}

// Items opens a fresh cursor over (key, value) pairs.
func (c *Conn) Items(ctx context.Context, order Order, dir Direction) (*ItemCursor, error) {
	rows, err := c.cursorQuery(ctx, "key, value", order, dir)
	if err != nil {
		return nil, err
	}
	return &ItemCursor{rows: rows, ser: c.ser}, nil
}

func (c *Conn) cursorQuery(ctx context.Context, columns string, order Order, dir Direction) (*sql.Rows, error) {
	col, err := order.column()
	if err != nil {
		return nil, err
	}
	keyword, err := dir.keyword()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s %s`, columns, c.table, col, keyword)
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "iterating %s", c.table)
	}
	return rows, nil
}

// KeyCursor iterates over keys. Call Next until it returns false, then check
// Err; always Close.
type KeyCursor struct {
	rows *sql.Rows
	key  string
	err  error
}

// Next advances the cursor and reports whether a key is available.
func (c *KeyCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.err = c.rows.Scan(&c.key)
	return c.err == nil
}

// Key returns the key at the current position.
func (c *KeyCursor) Key() string { return c.key }

// Err returns the first error encountered during iteration.
func (c *KeyCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the cursor.
func (c *KeyCursor) Close() error { return c.rows.Close() }

// ValueCursor iterates over deserialized values.
type ValueCursor struct {
	rows  *sql.Rows
	ser   serializer.Serializer
	value any
	err   error
}

// Next advances the cursor and reports whether a value is available.
func (c *ValueCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var data []byte
	if c.err = c.rows.Scan(&data); c.err != nil {
		return false
	}
	c.value, c.err = c.ser.Loads(data)
	return c.err == nil
}

// Value returns the value at the current position.
func (c *ValueCursor) Value() any { return c.value }

// Err returns the first error encountered during iteration.
func (c *ValueCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the cursor.
func (c *ValueCursor) Close() error { return c.rows.Close() }

// ItemCursor iterates over (key, value) pairs.
type ItemCursor struct {
	rows  *sql.Rows
	ser   serializer.Serializer
	key   string
	value any
	err   error
}

// Next advances the cursor and reports whether a pair is available.
func (c *ItemCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var data []byte
	if c.err = c.rows.Scan(&c.key, &data); c.err != nil {
		return false
	}
	c.value, c.err = c.ser.Loads(data)
	return c.err == nil
}

// Key returns the key at the current position.
func (c *ItemCursor) Key() string { return c.key }

// Value returns the value at the current position.
func (c *ItemCursor) Value() any { return c.value }

// Err returns the first error encountered during iteration.
func (c *ItemCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the cursor.
func (c *ItemCursor) Close() error { return c.rows.Close() }
