package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL backend for closed turns
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const createDaysTable = `
CREATE TABLE IF NOT EXISTS history_days (
	game_id     TEXT NOT NULL,
	player_id   TEXT NOT NULL,
	turn        INTEGER NOT NULL,
	location_id TEXT NOT NULL,
	items       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (game_id, player_id, turn)
)`

var _ storage.HistoryArchive = (*Store)(nil)

// Config holds configuration for the archive. DSN is a file path for sqlite.
type Config struct {
	Dialect Dialect
	DSN     string
	Logger  *logrus.Logger
}

// Store persists closed turns so a player's recap survives restarts
type Store struct {
	dialect Dialect
	db      *sql.DB
	logger  *logrus.Logger
	now     func() time.Time
}

// Open connects to the configured database and creates the schema
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	var driverName string
	dsn := strings.TrimSpace(cfg.DSN)
	switch cfg.Dialect {
	case DialectSQLite:
		driverName = "sqlite"
		if dsn == "" {
			dsn = filepath.Join("tmp", "hustler_history.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	case DialectPostgres:
		driverName = "pgx"
		if dsn == "" {
			return nil, errors.New("postgres archive requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported archive dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s archive: %w", cfg.Dialect, err)
	}
	if cfg.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s archive: %w", cfg.Dialect, err)
	}
	if _, err := db.ExecContext(ctx, createDaysTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history_days: %w", err)
	}

	cfg.Logger.WithField("dialect", cfg.Dialect).Info("history archive ready")
	return &Store{dialect: cfg.Dialect, db: db, logger: cfg.Logger, now: time.Now}, nil
}

// bind returns the placeholder for the pos-th argument
func (s *Store) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

// SaveDay appends a closed turn and returns its 1-based turn number
func (s *Store) SaveDay(ctx context.Context, gameID, playerID string, day history.Day) (int, error) {
	items, err := json.Marshal(day.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal day items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save day: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int
	q := fmt.Sprintf("SELECT COALESCE(MAX(turn), 0) FROM history_days WHERE game_id = %s AND player_id = %s",
		s.bind(1), s.bind(2))
	if err := tx.QueryRowContext(ctx, q, gameID, playerID).Scan(&last); err != nil {
		return 0, fmt.Errorf("read last turn: %w", err)
	}

	turn := last + 1
	ins := fmt.Sprintf("INSERT INTO history_days (game_id, player_id, turn, location_id, items, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6))
	if _, err := tx.ExecContext(ctx, ins, gameID, playerID, turn, day.Location, string(items), s.now().UTC()); err != nil {
		return 0, fmt.Errorf("insert day: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit day: %w", err)
	}
	return turn, nil
}

// Days returns every archived turn for the player, oldest first
func (s *Store) Days(ctx context.Context, gameID, playerID string) ([]history.Day, error) {
	q := fmt.Sprintf("SELECT location_id, items FROM history_days WHERE game_id = %s AND player_id = %s ORDER BY turn",
		s.bind(1), s.bind(2))
	rows, err := s.db.QueryContext(ctx, q, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	days := []history.Day{}
	for rows.Next() {
		var (
			day   history.Day
			items string
		)
		if err := rows.Scan(&day.Location, &items); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &day.Items); err != nil {
			return nil, fmt.Errorf("unmarshal day items: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return days, nil
}

// Clear removes the player's archived turns
func (s *Store) Clear(ctx context.Context, gameID, playerID string) error {
	q := fmt.Sprintf("DELETE FROM history_days WHERE game_id = %s AND player_id = %s", s.bind(1), s.bind(2))
	if _, err := s.db.ExecContext(ctx, q, gameID, playerID); err != nil {
		return fmt.Errorf("clear days: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
