package storage

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"castbot/pkg/logx"
)

//go:embed migrations/sqlite.sql
var sqliteSchema string

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one writer; WAL lets readers proceed alongside it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	log = log.With(logx.String("driver", "sqlite"))
	applyPragmas(db, cfg.BusyTimeout, log)

	st := newSQLStore(db, log)
	if err := st.migrate(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// applyPragmas tunes the connection. A rejected pragma is logged and the
// store opens with the driver default; it returns how many failed.
func applyPragmas(db *sqlx.DB, busyTimeout time.Duration, log logx.Logger) int {
	pragmas := make([]string, 0, 3)
	if busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")

	failed := 0
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Warn("sqlite pragma failed", logx.String("pragma", p), logx.Err(err))
			failed++
		}
	}
	return failed
}
