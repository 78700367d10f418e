package dict

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ttldict/core/errors"
	"github.com/FocuswithJustin/ttldict/core/identifier"
	"github.com/FocuswithJustin/ttldict/core/serializer"
	"github.com/FocuswithJustin/ttldict/core/sqlite"
)

// BeginMode selects the transaction mode issued at session start.
type BeginMode string

const (
	// Deferred waits for the first read or write before taking locks.
	Deferred BeginMode = "DEFERRED"
	// Immediate acquires the write lock eagerly, avoiding later upgrade
	// deadlocks under concurrent writers. This is the default.
	Immediate BeginMode = "IMMEDIATE"
	// Exclusive additionally blocks new readers in rollback-journal modes.
	Exclusive BeginMode = "EXCLUSIVE"
)

// DefaultTable is the table name used when WithTable is not given.
const DefaultTable = "ttldict"

// DefaultLifespan is the entry lifespan used when WithLifespan is not given.
const DefaultLifespan = 7 * 24 * time.Hour

// Manager owns the engine handle for one database file and hands out
// sessions. Sessions from one Manager are strictly sequential: beginning a
// second session while one is open fails with ErrReentrancy. For concurrent
// access, give each goroutine or process its own Manager against the same
// file; isolation is then the engine's business.
type Manager struct {
	path     string
	rawTable string
	table    identifier.Identifier
	ser      serializer.Serializer
	begin    BeginMode
	readOnly bool
	log      *slog.Logger

	mu       sync.Mutex
	lifespan time.Duration
	db       *sql.DB
	caps     capabilities
	capsOK   bool
	active   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTable names the table backing the mapping. The name may contain quote
// characters but not null bytes.
func WithTable(name string) Option {
	return func(m *Manager) { m.rawTable = name }
}

// WithLifespan sets the duration added to "now" when computing entry expiry.
func WithLifespan(d time.Duration) Option {
	return func(m *Manager) { m.lifespan = d }
}

// WithSerializer sets the value codec. The default is serializer.Default().
func WithSerializer(s serializer.Serializer) Option {
	return func(m *Manager) { m.ser = s }
}

// WithBegin sets the transaction mode issued at session start.
func WithBegin(mode BeginMode) Option {
	return func(m *Manager) { m.begin = mode }
}

// WithReadOnly opens the database file read-only. Mutating operations fail
// with ErrReadOnly before reaching the engine.
func WithReadOnly() Option {
	return func(m *Manager) { m.readOnly = true }
}

// WithLogger sets the logger for session lifecycle debug logs. The default
// is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager configures a store for the database file at path. The engine
// handle itself is opened lazily on the first session, but the table name
// and the target directory are validated here, so a bad path or identifier
// surfaces before any mapping operation is possible.
func NewManager(path string, opts ...Option) (*Manager, error) {
	m := &Manager{
		path:     path,
		rawTable: DefaultTable,
		lifespan: DefaultLifespan,
		begin:    Immediate,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ser == nil {
		m.ser = serializer.Default()
	}

	table, err := identifier.New(m.rawTable)
	if err != nil {
		return nil, err
	}
	m.table = table

	if !isMemoryPath(path) {
		dir := filepath.Dir(path)
		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			return nil, errors.NewDirectoryNotFound(dir, statErr)
		}
	}
	return m, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

// Lifespan returns the lifespan applied to sessions begun after this call.
func (m *Manager) Lifespan() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifespan
}

// SetLifespan changes the lifespan for future sessions. Sessions already
// open keep the lifespan they started with.
func (m *Manager) SetLifespan(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lifespan = d
}

// Begin opens a session: it pins one engine connection, applies the
// durability pragmas, issues BEGIN, and runs schema migration for the table.
// The caller must end the session with exactly one Commit or Rollback, on
// every path. Prefer Update and View, which guarantee that.
func (m *Manager) Begin(ctx context.Context) (*Session, error) {
	return m.beginSession(ctx, m.readOnly)
}

func (m *Manager) beginSession(ctx context.Context, viewOnly bool) (*Session, error) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return nil, errors.ErrReentrancy
	}
	if m.db == nil {
		var err error
		if m.readOnly {
			m.db, err = sqlite.OpenReadOnly(m.path)
		} else {
			m.db, err = sqlite.Open(m.path)
		}
		if err != nil {
			m.mu.Unlock()
			return nil, errors.Wrapf(err, "opening %s", m.path)
		}
	}
	m.active = true
	db := m.db
	lifespan := m.lifespan
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		release()
		return nil, errors.Wrapf(err, "opening %s", m.path)
	}
	fail := func(err error) (*Session, error) {
		_ = conn.Close()
		release()
		return nil, err
	}

	// WAL plus relaxed synchronous durability is the configured trade:
	// commits survive application crashes, not necessarily power loss.
	if !m.readOnly {
		var journalMode string
		if err := conn.QueryRowContext(ctx, `PRAGMA journal_mode=WAL`).Scan(&journalMode); err != nil {
			return fail(errors.Wrap(err, "setting journal mode"))
		}
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA synchronous=NORMAL`); err != nil {
		return fail(errors.Wrap(err, "setting synchronous mode"))
	}

	m.mu.Lock()
	caps, capsOK := m.caps, m.capsOK
	m.mu.Unlock()
	if !capsOK {
		caps, err = detectCapabilities(ctx, conn)
		if err != nil {
			return fail(err)
		}
		m.mu.Lock()
		m.caps, m.capsOK = caps, true
		m.mu.Unlock()
	}

	mode := m.begin
	if viewOnly || m.readOnly {
		mode = Deferred
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(`BEGIN %s TRANSACTION`, mode)); err != nil {
		return fail(errors.Wrap(err, "beginning transaction"))
	}

	log := m.log.With("session", uuid.NewString(), "table", m.table.Value())
	dictConn := &Conn{
		conn:     conn,
		table:    m.table,
		ser:      m.ser,
		caps:     caps,
		lifespan: lifespan,
		readOnly: viewOnly || m.readOnly,
		log:      log,
	}
	if err := dictConn.migrate(ctx, m.path, m.readOnly); err != nil {
		_, _ = conn.ExecContext(ctx, `ROLLBACK`)
		return fail(err)
	}

	log.DebugContext(ctx, "session open", "mode", string(mode))
	return &Session{m: m, conn: conn, dict: dictConn, log: log}, nil
}

// Update runs fn inside a read-write session. The transaction commits if fn
// returns nil and rolls back otherwise; the original error is returned, with
// any rollback failure joined to it.
func (m *Manager) Update(ctx context.Context, fn func(*Conn) error) error {
	return m.run(ctx, false, fn)
}

// View runs fn inside a read-only session: mutating operations on the Conn
// fail with ErrReadOnly, and the transaction is always rolled back at the
// end since there is nothing to commit.
func (m *Manager) View(ctx context.Context, fn func(*Conn) error) error {
	return m.run(ctx, true, fn)
}

func (m *Manager) run(ctx context.Context, viewOnly bool, fn func(*Conn) error) error {
	s, err := m.beginSession(ctx, viewOnly)
	if err != nil {
		return err
	}
	defer func() {
		// Covers panics inside fn; held locks must not leak.
		if !s.done {
			_ = s.Rollback()
		}
	}()

	if err := fn(s.Map()); err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			return stderrors.Join(err, rbErr)
		}
		return err
	}
	if viewOnly {
		return s.Rollback()
	}
	return s.Commit()
}

// Close runs a best-effort optimize pass and closes the engine handle. The
// optimize failure is logged at debug level, never returned, so teardown
// cannot mask an earlier error. A closed Manager may be reused; the next
// session reopens the handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	db := m.db
	m.db = nil
	m.capsOK = false
	m.mu.Unlock()
	if db == nil {
		return nil
	}

	if !m.readOnly {
		err := func() error {
			if _, err := db.Exec(`PRAGMA analysis_limit=8192`); err != nil {
				return err
			}
			_, err := db.Exec(`PRAGMA optimize`)
			return err
		}()
		if err != nil {
			m.log.Debug("optimize before close failed", "error", err)
		}
	}
	return db.Close()
}

// Session is one open transaction against the store. End it with exactly one
// Commit or Rollback; both release the pinned connection.
type Session struct {
	m    *Manager
	conn *sql.Conn
	dict *Conn
	log  *slog.Logger
	done bool
}

// Map returns the mapping bound to this session's transaction. It must not
// be used after Commit or Rollback.
func (s *Session) Map() *Conn { return s.dict }

// Commit commits the transaction and releases the session.
func (s *Session) Commit() error { return s.finish("COMMIT") }

// Rollback abandons the transaction and releases the session.
func (s *Session) Rollback() error { return s.finish("ROLLBACK") }

func (s *Session) finish(stmt string) error {
	if s.done {
		return errors.ErrSessionClosed
	}
	s.done = true

	_, execErr := s.conn.ExecContext(context.Background(), stmt)
	closeErr := s.conn.Close()

	s.m.mu.Lock()
	s.m.active = false
	s.m.mu.Unlock()

	if execErr != nil {
		return errors.Wrapf(execErr, "%s failed", strings.ToLower(stmt))
	}
	if closeErr != nil {
		return errors.Wrap(closeErr, "releasing connection")
	}
	s.log.Debug("session closed", "stmt", stmt)
	return nil
}
