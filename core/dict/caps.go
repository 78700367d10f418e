package dict

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// capabilities records the engine features detected once per Manager, so the
// statement builders branch on a fixed table instead of sprinkling version
// checks through every operation.
type capabilities struct {
	upsert    bool // INSERT ... ON CONFLICT DO UPDATE, SQLite >= 3.24
	strict    bool // STRICT tables and the ANY column type, SQLite >= 3.37
	unixepoch bool // the UNIXEPOCH() SQL function, SQLite >= 3.38
}

func detectCapabilities(ctx context.Context, conn *sql.Conn) (capabilities, error) {
	var version string
	if err := conn.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return capabilities{}, fmt.Errorf("detecting engine version: %w", err)
	}
	return capsForVersion(version)
}

func capsForVersion(version string) (capabilities, error) {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return capabilities{}, fmt.Errorf("unparseable sqlite version %q", version)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return capabilities{}, fmt.Errorf("unparseable sqlite version %q", version)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return capabilities{}, fmt.Errorf("unparseable sqlite version %q", version)
	}

	atLeast := func(wantMajor, wantMinor int) bool {
		return major > wantMajor || (major == wantMajor && minor >= wantMinor)
	}
	return capabilities{
		upsert:    atLeast(3, 24),
		strict:    atLeast(3, 37),
		unixepoch: atLeast(3, 38),
	}, nil
}

// now returns the SQL expression for the current unix epoch in seconds.
func (c capabilities) now() string {
	if c.unixepoch {
		return "UNIXEPOCH()"
	}
	return "CAST(strftime('%s', 'now') AS INTEGER)"
}

// valueType returns the column type for stored values.
func (c capabilities) valueType() string {
	if c.strict {
		return "ANY"
	}
	return "BLOB"
}

// tableTrailer returns the CREATE TABLE suffix, if any.
func (c capabilities) tableTrailer() string {
	if c.strict {
		return " STRICT"
	}
	return ""
}
