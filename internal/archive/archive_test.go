package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openSQLite(t *testing.T) *Store {
	s, err := Open(context.Background(), Config{
		Dialect: DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "nested", "history.sqlite"),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDay(location string) history.Day {
	return history.Day{
		Location: location,
		Items: []history.Item{
			{Kind: history.KindTrade, Drug: "weed", Trade: &history.Trade{Direction: market.Buy, Quantity: 3}},
			{Kind: history.KindEncounter, Encounter: &history.Encounter{Status: models.StatusBeingMugged, Outcome: models.OutcomePaid}},
		},
	}
}

func testRoundTrip(t *testing.T, s *Store) {
	ctx := context.Background()
	require.NoError(t, s.Clear(ctx, "g1", "p1"))

	turn, err := s.SaveDay(ctx, "g1", "p1", sampleDay("queens"))
	require.NoError(t, err)
	assert.Equal(t, 1, turn)

	turn, err = s.SaveDay(ctx, "g1", "p1", history.Day{Location: "bronx"})
	require.NoError(t, err)
	assert.Equal(t, 2, turn)

	_, err = s.SaveDay(ctx, "g1", "p2", sampleDay("coney"))
	require.NoError(t, err)

	days, err := s.Days(ctx, "g1", "p1")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, sampleDay("queens"), days[0])
	assert.Equal(t, "bronx", days[1].Location)
	assert.Empty(t, days[1].Items)

	require.NoError(t, s.Clear(ctx, "g1", "p1"))
	days, err = s.Days(ctx, "g1", "p1")
	require.NoError(t, err)
	assert.Empty(t, days)

	days, err = s.Days(ctx, "g1", "p2")
	require.NoError(t, err)
	assert.Len(t, days, 1)
	require.NoError(t, s.Clear(ctx, "g1", "p2"))
}

func TestSQLite_RoundTrip(t *testing.T) {
	testRoundTrip(t, openSQLite(t))
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	cfg := Config{Dialect: DialectSQLite, DSN: path, Logger: quietLogger()}

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	_, err = s.SaveDay(context.Background(), "g1", "p1", sampleDay("queens"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	days, err := s.Days(context.Background(), "g1", "p1")
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("HISTORY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HISTORY_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), Config{Dialect: DialectPostgres, DSN: dsn, Logger: quietLogger()})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	testRoundTrip(t, s)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Config{Dialect: DialectPostgres})
	assert.ErrorContains(t, err, "requires a DSN")

	_, err = Open(context.Background(), Config{Dialect: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported archive dialect")
}

func TestBind(t *testing.T) {
	assert.Equal(t, "?", (&Store{dialect: DialectSQLite}).bind(3))
	assert.Equal(t, "$3", (&Store{dialect: DialectPostgres}).bind(3))
}
