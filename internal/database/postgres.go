// Package database provides the Postgres-backed cycle-history store.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Connect opens a Postgres connection pool and applies pending migrations.
func Connect(url string, log *logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	if log != nil {
		log.Info("database connected, migrations applied")
	}
	return db, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type cycleRow struct {
	ID              string    `db:"id"`
	Number          int64     `db:"number"`
	Winner          string    `db:"winner"`
	CharityWinner   int       `db:"charity_winner"`
	HighestDonation int64     `db:"highest_donation"`
	Jackpot         int64     `db:"jackpot"`
	EntrantCount    int       `db:"entrant_count"`
	Tally1          int64     `db:"tally_1"`
	Tally2          int64     `db:"tally_2"`
	Tally3          int64     `db:"tally_3"`
	StartedAt       time.Time `db:"started_at"`
	ClosedAt        time.Time `db:"closed_at"`
}

func (r cycleRow) toCycle() raffle.Cycle {
	return raffle.Cycle{
		ID:              r.ID,
		Number:          r.Number,
		Winner:          raffle.Address(r.Winner),
		CharityWinner:   raffle.CharityID(r.CharityWinner),
		HighestDonation: r.HighestDonation,
		Jackpot:         r.Jackpot,
		EntrantCount:    r.EntrantCount,
		Tallies:         [raffle.NumCharities]int64{r.Tally1, r.Tally2, r.Tally3},
		StartedAt:       r.StartedAt,
		ClosedAt:        r.ClosedAt,
	}
}

// CycleStore persists completed raffle cycles in Postgres.
type CycleStore struct {
	db *sqlx.DB
}

// NewCycleStore wraps an open connection pool.
func NewCycleStore(db *sqlx.DB) *CycleStore {
	return &CycleStore{db: db}
}

// SaveCycle inserts a completed cycle record.
func (s *CycleStore) SaveCycle(ctx context.Context, cycle raffle.Cycle) (raffle.Cycle, error) {
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	if cycle.ClosedAt.IsZero() {
		cycle.ClosedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO raffle_cycles (
			id, number, winner, charity_winner, highest_donation,
			jackpot, entrant_count, tally_1, tally_2, tally_3,
			started_at, closed_at
		) VALUES (
			:id, :number, :winner, :charity_winner, :highest_donation,
			:jackpot, :entrant_count, :tally_1, :tally_2, :tally_3,
			:started_at, :closed_at
		)`

	row := cycleRow{
		ID:              cycle.ID,
		Number:          cycle.Number,
		Winner:          string(cycle.Winner),
		CharityWinner:   int(cycle.CharityWinner),
		HighestDonation: cycle.HighestDonation,
		Jackpot:         cycle.Jackpot,
		EntrantCount:    cycle.EntrantCount,
		Tally1:          cycle.Tallies[0],
		Tally2:          cycle.Tallies[1],
		Tally3:          cycle.Tallies[2],
		StartedAt:       cycle.StartedAt,
		ClosedAt:        cycle.ClosedAt,
	}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return raffle.Cycle{}, fmt.Errorf("insert cycle: %w", err)
	}
	return cycle, nil
}

// GetCycle fetches one cycle by ID.
func (s *CycleStore) GetCycle(ctx context.Context, cycleID string) (raffle.Cycle, error) {
	var row cycleRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM raffle_cycles WHERE id = $1`, cycleID)
	if errors.Is(err, sql.ErrNoRows) {
		return raffle.Cycle{}, fmt.Errorf("cycle not found: %s", cycleID)
	}
	if err != nil {
		return raffle.Cycle{}, fmt.Errorf("get cycle: %w", err)
	}
	return row.toCycle(), nil
}

// ListCycles returns the most recent cycles, newest first.
func (s *CycleStore) ListCycles(ctx context.Context, limit int) ([]raffle.Cycle, error) {
	var rows []cycleRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM raffle_cycles ORDER BY closed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	cycles := make([]raffle.Cycle, len(rows))
	for i, r := range rows {
		cycles[i] = r.toCycle()
	}
	return cycles, nil
}
