package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"AstroSwap/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder appends analyses, trades and failures to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			score       INTEGER NOT NULL,
			tier        TEXT,
			confidence  TEXT,
			moon_phase  TEXT,
			factors     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			kind           TEXT NOT NULL,
			amount_in      TEXT,
			token_in       TEXT,
			amount_out     TEXT,
			token_out      TEXT,
			score          INTEGER,
			recommendation TEXT,
			fee_tier       INTEGER,
			reserved       TEXT,
			receipt        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			context    TEXT,
			kind       TEXT,
			message    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_ts ON failures(timestamp)`,

		`CREATE TABLE IF NOT EXISTS lifecycle (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			event      TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAnalysis(a *model.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	_, err = r.db.Exec(`INSERT INTO analyses
		(timestamp, score, tier, confidence, moon_phase, factors)
		VALUES (?,?,?,?,?,?)`,
		a.Timestamp.Unix(), a.Score, string(a.Tier), string(a.Confidence), a.MoonPhase, string(factors),
	)
	return err
}

func (r *SQLiteRecorder) RecordTrade(tr *model.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var score sql.NullInt64
	if tr.Score != nil {
		score = sql.NullInt64{Int64: int64(*tr.Score), Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO trades
		(id, timestamp, kind, amount_in, token_in, amount_out, token_out,
		 score, recommendation, fee_tier, reserved, receipt)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		tr.ID, tr.Timestamp.Unix(), string(tr.Kind),
		tr.AmountIn.String(), tr.TokenIn, tr.AmountOut.String(), tr.TokenOut,
		score, tr.Recommendation, tr.FeeTier, tr.Reserved.String(), string(tr.Receipt),
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(evt *FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO failures (timestamp, context, kind, message) VALUES (?,?,?,?)`,
		time.Now().Unix(), evt.Context, string(evt.Kind), evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordLifecycle(evt *LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO lifecycle (timestamp, event) VALUES (?,?)`,
		evt.Timestamp.Unix(), string(evt.Event),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
