package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tokenTradeBot/internal/domain"
	"tokenTradeBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Ledger implements ports.TradeLedger using SQLite. The in-memory position
// store owns the live state; the ledger only ever sees closed positions, so
// the schema is append-mostly and the table is never updated in place.
type Ledger struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite ledger.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewLedger creates a new SQLite ledger instance.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for SQLite ledger", ports.ErrConfig)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the writer and report queries.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ledger := &Ledger{db: db, logger: cfg.Logger}
	if err := ledger.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize ledger schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite ledger ready", map[string]interface{}{"path": dbPath})
	return ledger, nil
}

func (l *Ledger) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS closed_positions (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount REAL NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		holding_seconds REAL NOT NULL,
		profit REAL NOT NULL,
		profit_pct REAL NOT NULL,
		close_reason TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_closed_positions_token_exit_time ON closed_positions (token, exit_time);
	`
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		l.logger.Info(context.Background(), "Closing SQLite ledger connection")
		return l.db.Close()
	}
	return nil
}

// RecordClosedPosition appends a closed position to the ledger.
func (l *Ledger) RecordClosedPosition(ctx context.Context, pos *domain.ClosedPosition) error {
	const query = `
	INSERT INTO closed_positions (id, token, direction, amount, entry_price, exit_price,
	                              stop_loss, take_profit, entry_time, exit_time,
	                              holding_seconds, profit, profit_pct, close_reason, strategy)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, query,
		pos.ID, pos.Token, string(pos.Direction), pos.Amount, pos.EntryPrice, pos.ExitPrice,
		pos.StopLoss, pos.TakeProfit, pos.EntryTime, pos.ExitTime,
		pos.HoldingTime.Seconds(), pos.Profit, pos.ProfitPercentage, string(pos.CloseReason),
		pos.Signal.Strategy)
	if err != nil {
		return fmt.Errorf("failed to insert closed position %s (%s): %w: %w",
			pos.ID, pos.Token, ports.ErrQueryFailed, err)
	}
	l.logger.Debug(ctx, "Closed position recorded", map[string]interface{}{
		"positionID": pos.ID,
		"token":      pos.Token,
		"profit":     pos.Profit,
	})
	return nil
}

// FindByToken retrieves the most recent closed positions for a token, newest
// first, up to limit.
func (l *Ledger) FindByToken(ctx context.Context, token string, limit int) ([]*domain.ClosedPosition, error) {
	const query = `
	SELECT id, token, direction, amount, entry_price, exit_price,
	       stop_loss, take_profit, entry_time, exit_time,
	       holding_seconds, profit, profit_pct, close_reason, strategy
	FROM closed_positions
	WHERE token = ? ORDER BY exit_time DESC LIMIT ?`

	rows, err := l.db.QueryContext(ctx, query, token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed positions for token %s: %w: %w",
			token, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	positions := make([]*domain.ClosedPosition, 0)
	for rows.Next() {
		pos, err := scanClosedPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed position for token %s: %w", token, err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed position rows: %w", err)
	}
	return positions, nil
}

// TotalProfit sums the realized profit across all recorded positions.
func (l *Ledger) TotalProfit(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(profit), 0) FROM closed_positions`
	var total float64
	if err := l.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger profit: %w: %w", ports.ErrQueryFailed, err)
	}
	return total, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanClosedPosition(s scanner) (*domain.ClosedPosition, error) {
	cp := &domain.ClosedPosition{}
	var direction, closeReason string
	var holdingSeconds float64
	err := s.Scan(
		&cp.ID, &cp.Token, &direction, &cp.Amount, &cp.EntryPrice, &cp.ExitPrice,
		&cp.StopLoss, &cp.TakeProfit, &cp.EntryTime, &cp.ExitTime,
		&holdingSeconds, &cp.Profit, &cp.ProfitPercentage, &closeReason,
		&cp.Signal.Strategy)
	if err != nil {
		return nil, err
	}
	cp.Direction = domain.Direction(direction)
	cp.CloseReason = domain.CloseReason(closeReason)
	cp.HoldingTime = time.Duration(holdingSeconds * float64(time.Second))
	return cp, nil
}
