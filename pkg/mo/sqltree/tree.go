// Package sqltree is a management object provider persisted in SQLite.
//
// Each node is one row keyed by its normalized URI. The database is opened
// with the pure Go modernc.org/sqlite driver, so the provider needs no cgo.
package sqltree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrDatabase wraps failures of the underlying database.
var ErrDatabase = errors.New("sqltree: database error")

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	uri      TEXT PRIMARY KEY,
	parent   TEXT NOT NULL,
	name     TEXT NOT NULL,
	interior INTEGER NOT NULL,
	format   TEXT NOT NULL DEFAULT '',
	type     TEXT NOT NULL DEFAULT '',
	data     BLOB
);
CREATE INDEX IF NOT EXISTS nodes_parent ON nodes(parent);
`

// Config configures a Tree.
type Config struct {
	// Path is the database file. ":memory:" keeps the tree in memory.
	Path string

	// BaseURI is the root of the subtree served by the provider.
	BaseURI string

	// LoggerFactory creates the provider's logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("sqltree: Path is required")
	}
	if _, err := mo.Normalize(c.BaseURI); err != nil {
		return err
	}
	return nil
}

// Tree is a SQLite backed provider.
type Tree struct {
	db   *sql.DB
	base string
	log  logging.LeveledLogger
}

// Open opens or creates the database and makes sure the base node exists.
func Open(config Config) (*Tree, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, _ := mo.Normalize(config.BaseURI)

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrDatabase, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	t := &Tree{db: db, base: base}
	if config.LoggerFactory != nil {
		t.log = config.LoggerFactory.NewLogger("sqltree")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: schema: %v", ErrDatabase, err)
	}
	_, err = db.Exec(`INSERT OR IGNORE INTO nodes (uri, parent, name, interior) VALUES (?, ?, ?, 1)`,
		base, mo.Parent(base), mo.Name(base))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: base node: %v", ErrDatabase, err)
	}

	if t.log != nil {
		t.log.Debugf("opened %s for %s", config.Path, base)
	}
	return t, nil
}

// Close closes the database.
func (t *Tree) Close() error {
	return t.db.Close()
}

// BaseURI implements mo.Provider.
func (t *Tree) BaseURI() string {
	return t.base
}

type row struct {
	interior bool
	format   string
	typ      string
	data     []byte
}

func (t *Tree) load(ctx context.Context, q querier, uri string) (*row, error) {
	var r row
	err := q.QueryRowContext(ctx,
		`SELECT interior, format, type, data FROM nodes WHERE uri = ?`, uri,
	).Scan(&r.interior, &r.format, &r.typ, &r.data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return &r, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IsNode implements mo.Provider.
func (t *Tree) IsNode(ctx context.Context, uri string) (mo.NodeKind, error) {
	r, err := t.load(ctx, t.db, uri)
	switch {
	case err != nil:
		return mo.NodeNone, err
	case r == nil:
		return mo.NodeNone, nil
	case r.interior:
		return mo.NodeInterior, nil
	default:
		return mo.NodeLeaf, nil
	}
}

// Get implements mo.Provider.
func (t *Tree) Get(ctx context.Context, uri string) (*mo.Node, error) {
	r, err := t.load(ctx, t.db, uri)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if r.interior {
		children, err := t.children(ctx, t.db, uri)
		if err != nil {
			return nil, err
		}
		return mo.InteriorNode(uri, children), nil
	}
	return &mo.Node{URI: uri, Format: r.format, Type: r.typ, Data: r.data}, nil
}

// List implements mo.Provider.
func (t *Tree) List(ctx context.Context, uri string) ([]string, error) {
	r, err := t.load(ctx, t.db, uri)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if !r.interior {
		return nil, fmt.Errorf("%w: %s is a leaf", mo.ErrNotAllowed, uri)
	}
	return t.children(ctx, t.db, uri)
}

func (t *Tree) children(ctx context.Context, q querier, uri string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM nodes WHERE parent = ? AND uri != ? ORDER BY name`, uri, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return names, nil
}

// Set implements mo.Provider. Missing ancestors are created as interior
// nodes in the same transaction.
func (t *Tree) Set(ctx context.Context, n *mo.Node) error {
	if !mo.HasPrefix(n.URI, t.base) {
		return fmt.Errorf("%w: %s outside %s", mo.ErrNotFound, n.URI, t.base)
	}
	interior := n.Format == syncml.FormatNode
	format := n.Format
	if format == "" {
		format = syncml.FormatChr
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	existing, err := t.load(ctx, tx, n.URI)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.interior != interior {
			return fmt.Errorf("%w: cannot change node kind of %s", mo.ErrNotAllowed, n.URI)
		}
		if !interior {
			_, err = tx.ExecContext(ctx, `UPDATE nodes SET format = ?, type = ?, data = ? WHERE uri = ?`,
				format, n.Type, n.Data, n.URI)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrDatabase, err)
			}
		}
		return t.commit(tx)
	}

	if err := t.ensureParents(ctx, tx, n.URI); err != nil {
		return err
	}
	if interior {
		_, err = tx.ExecContext(ctx, `INSERT INTO nodes (uri, parent, name, interior) VALUES (?, ?, ?, 1)`,
			n.URI, mo.Parent(n.URI), mo.Name(n.URI))
	} else {
		_, err = tx.ExecContext(ctx, `INSERT INTO nodes (uri, parent, name, interior, format, type, data) VALUES (?, ?, ?, 0, ?, ?, ?)`,
			n.URI, mo.Parent(n.URI), mo.Name(n.URI), format, n.Type, n.Data)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return t.commit(tx)
}

func (t *Tree) ensureParents(ctx context.Context, tx *sql.Tx, uri string) error {
	var missing []string
	for p := mo.Parent(uri); ; p = mo.Parent(p) {
		r, err := t.load(ctx, tx, p)
		if err != nil {
			return err
		}
		if r != nil {
			if !r.interior {
				return fmt.Errorf("%w: %s is a leaf", mo.ErrNotAllowed, p)
			}
			break
		}
		missing = append(missing, p)
		if p == t.base || p == mo.Root {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		p := missing[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO nodes (uri, parent, name, interior) VALUES (?, ?, ?, 1)`,
			p, mo.Parent(p), mo.Name(p))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}
	return nil
}

// Delete implements mo.Deleter.
func (t *Tree) Delete(ctx context.Context, uri string) error {
	if uri == t.base {
		return fmt.Errorf("%w: %s is the provider root", mo.ErrNotAllowed, uri)
	}
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM nodes WHERE uri = ? OR (uri >= ? AND uri < ?)`,
		uri, uri+"/", uri+"0")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if t.log != nil {
		t.log.Debugf("deleted %s", uri)
	}
	return nil
}

// Exec implements mo.Provider. Persisted nodes carry no behavior.
func (t *Tree) Exec(ctx context.Context, uri string, data []byte, correlator string) error {
	r, err := t.load(ctx, t.db, uri)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	return fmt.Errorf("%w: %s is not executable", mo.ErrNotAllowed, uri)
}

func (t *Tree) commit(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrDatabase, err)
	}
	return nil
}
