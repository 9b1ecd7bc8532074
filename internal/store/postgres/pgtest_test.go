package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openleague/draftauction/internal/clock"
	"github.com/openleague/draftauction/internal/store"
	"github.com/openleague/draftauction/internal/store/postgres"
)

var testT0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

// fixture wires every repository to one test database and a mock clock.
type fixture struct {
	lots     *postgres.LotRepo
	teams    *postgres.TeamRepo
	sessions *postgres.SessionRepo
	events   *postgres.EventStore
	clk      *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clk := clock.NewMock(testT0)
	return &fixture{
		lots:     postgres.NewLotRepo(db, clk),
		teams:    postgres.NewTeamRepo(db, clk),
		sessions: postgres.NewSessionRepo(db, clk),
		events:   postgres.NewEventStore(db),
		clk:      clk,
	}
}

func (f *fixture) addTeam(t *testing.T, name string, balance int64) *store.Team {
	t.Helper()
	team := &store.Team{Name: name, Balance: balance}
	if err := f.teams.Create(context.Background(), team); err != nil {
		t.Fatalf("creating team %s: %v", name, err)
	}
	return team
}

func (f *fixture) addLot(t *testing.T, name, tier string, minBid int64) *store.Lot {
	t.Helper()
	lot := &store.Lot{Name: name, Tier: tier, Rating: 80, MinBid: minBid}
	if err := f.lots.Create(context.Background(), lot); err != nil {
		t.Fatalf("creating lot %s: %v", name, err)
	}
	return lot
}

// openSession starts an auction for a fresh lot and returns both.
func (f *fixture) openSession(t *testing.T, name string, minBid int64) (*store.Lot, *store.Session) {
	t.Helper()
	lot := f.addLot(t, name, "A", minBid)
	s, err := f.sessions.Open(context.Background(), lot, f.clk.Now().Add(30*time.Second))
	if err != nil {
		t.Fatalf("opening session for %s: %v", name, err)
	}
	return lot, s
}

// newTestDB starts a Postgres container, applies the migration, and returns
// a connected *sqlx.DB. The container is automatically terminated when the
// test ends.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	// Locate migration file relative to this source file.
	_, thisFile, _, _ := runtime.Caller(0)
	migrationDir := filepath.Join(filepath.Dir(thisFile), "migrations")

	migrationSQL, err := os.ReadFile(filepath.Join(migrationDir, "001_initial.sql"))
	if err != nil {
		t.Fatalf("reading migration: %v", err)
	}

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("draftauction_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithInitScripts(), // no bundled init scripts
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Apply migration.
	if _, err := db.ExecContext(ctx, string(migrationSQL)); err != nil {
		t.Fatalf("applying migration: %v", err)
	}

	return db
}
