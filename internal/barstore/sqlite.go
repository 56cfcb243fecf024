package barstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"TurtleTrader/internal/model"
)

// SQLiteStore persists fetched bars to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite bar store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			source     TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			pre_close  REAL,
			volume     REAL,
			PRIMARY KEY (source, symbol, trade_date)
		)`,

		`CREATE TABLE IF NOT EXISTS fetch_ranges (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			source     TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date   TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ranges_symbol ON fetch_ranges(source, symbol)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Covered(ctx context.Context, source, symbol string, start, end time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_ranges
		WHERE source = ? AND symbol = ? AND start_date <= ? AND end_date >= ?`,
		source, symbol, start.Format(dateLayout), end.Format(dateLayout),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query fetch ranges: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Load(ctx context.Context, source, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trade_date, open, high, low, close, pre_close, volume
		FROM bars
		WHERE source = ? AND symbol = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date`,
		source, symbol, start.Format(dateLayout), end.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var (
			ds string
			b  model.OHLCV
		)
		if err := rows.Scan(&ds, &b.Open, &b.High, &b.Low, &b.Close, &b.PrevClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if b.Date, err = time.Parse(dateLayout, ds); err != nil {
			return nil, fmt.Errorf("bad trade_date %q: %w", ds, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, source, symbol string, start, end time.Time, bars []model.OHLCV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO bars
		(source, symbol, trade_date, open, high, low, close, pre_close, volume)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, source, symbol, b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.PrevClose, b.Volume); err != nil {
			return fmt.Errorf("insert bar %s: %w", b.Date.Format(dateLayout), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO fetch_ranges
		(source, symbol, start_date, end_date, fetched_at) VALUES (?,?,?,?,?)`,
		source, symbol, start.Format(dateLayout), end.Format(dateLayout), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert fetch range: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	log.Info("closing sqlite bar store")
	return s.db.Close()
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*NoopStore)(nil)
)
