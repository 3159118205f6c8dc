// Package store persists scrap labels, diary events and their media in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Sentinel errors returned by the store.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNothingToUpdate is returned when an update carries no fields.
	ErrNothingToUpdate = errors.New("nothing to update")
)

// dsnParams enables WAL and foreign keys for every connection.
const dsnParams = "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"

const schema = `
CREATE TABLE IF NOT EXISTS refugo (
	id INTEGER PRIMARY KEY,
	filial TEXT NOT NULL DEFAULT '',
	data_registro DATETIME,
	dt_refugo DATETIME,
	etiqueta TEXT NOT NULL,
	cod_produto TEXT NOT NULL DEFAULT '',
	op TEXT NOT NULL DEFAULT '',
	centro_custo TEXT NOT NULL DEFAULT '',
	cod_defeito TEXT NOT NULL DEFAULT '',
	desc_defeito TEXT NOT NULL DEFAULT '',
	usuario TEXT NOT NULL DEFAULT '',
	qtd_retrabalho REAL NOT NULL DEFAULT 0,
	qtd_refugo REAL NOT NULL DEFAULT 0,
	numseq INTEGER NOT NULL DEFAULT 0,
	turno TEXT NOT NULL DEFAULT '',
	recurso TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dw_diariobordo_refugo_evento (
	evento_id TEXT PRIMARY KEY,
	etiqueta TEXT NOT NULL,
	cod_defeito TEXT NOT NULL DEFAULT '',
	desc_defeito TEXT NOT NULL DEFAULT '',
	cod_produto TEXT NOT NULL DEFAULT '',
	op TEXT NOT NULL DEFAULT '',
	dt_refugo DATETIME,
	centro_custo TEXT NOT NULL DEFAULT '',
	usuario_nome TEXT NOT NULL DEFAULT '',
	usuario_matricula TEXT NOT NULL DEFAULT '',
	transcricao_detalhe TEXT,
	transcricao_observacao TEXT,
	status TEXT NOT NULL DEFAULT 'DRAFT',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dw_diariobordo_refugo_midia (
	midia_id TEXT PRIMARY KEY,
	evento_id TEXT NOT NULL REFERENCES dw_diariobordo_refugo_evento(evento_id),
	tipo TEXT NOT NULL,
	arquivo_url TEXT NOT NULL,
	arquivo_path TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT '',
	duracao_seg INTEGER,
	tamanho_bytes INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refugo_etiqueta ON refugo(etiqueta, dt_refugo DESC);
CREATE INDEX IF NOT EXISTS idx_refugo_dt ON refugo(dt_refugo DESC);
CREATE INDEX IF NOT EXISTS idx_evento_created ON dw_diariobordo_refugo_evento(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_midia_evento ON dw_diariobordo_refugo_midia(evento_id);
`

// Store is the SQLite-backed repository. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dsn and applies the schema.
// A bare file path gets the default connection parameters.
func Open(dsn string) (*Store, error) {
	path, params, hasParams := strings.Cut(dsn, "?")
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, util.WrapError("create database directory", err)
		}
	}
	if !hasParams {
		params = dsnParams
	}

	db, err := sql.Open("sqlite3", path+"?"+params)
	if err != nil {
		return nil, util.WrapError("open database", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, util.WrapError("initialize schema", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable with a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return util.WrapError("query database", err)
	}
	return nil
}

// validID reports whether id is a well-formed UUID.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// isForeignKeyViolation reports whether err is a failed foreign key check.
func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// clampLimit applies def when limit is not positive and caps it at max.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func wrapNotFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
