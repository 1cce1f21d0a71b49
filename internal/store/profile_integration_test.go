//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/discovery-api/internal/catalog"
)

// Needs a reachable Postgres; run with
// TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/store/
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.DB.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRecordVisitKeepsCappedRecencyList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	userID := uuid.NewString()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (id, home_city) VALUES ($1, 'Delhi')`, userID)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.ClearVisits(ctx, userID)
		_, _ = s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	})

	itemIDs := make([]string, 25)
	for i := range itemIDs {
		itemIDs[i] = uuid.NewString()
		require.NoError(t, s.RecordVisit(ctx, userID, catalog.KindProperty, itemIDs[i]))
		time.Sleep(2 * time.Millisecond) // distinct visited_at per transaction
	}

	p, err := s.Profile(ctx, userID)
	require.NoError(t, err)
	require.Len(t, p.Visited, catalog.VisitedCapacity)
	assert.Equal(t, itemIDs[24], p.Visited[0].ItemID, "latest visit first")
	assert.Equal(t, itemIDs[5], p.Visited[len(p.Visited)-1].ItemID, "oldest five evicted")

	// Re-visiting moves the entry to the front without growing the list.
	require.NoError(t, s.RecordVisit(ctx, userID, catalog.KindProperty, itemIDs[10]))

	p, err = s.Profile(ctx, userID)
	require.NoError(t, err)
	require.Len(t, p.Visited, catalog.VisitedCapacity)
	assert.Equal(t, itemIDs[10], p.Visited[0].ItemID)
	seen := map[string]int{}
	for _, v := range p.Visited {
		seen[v.ItemID]++
	}
	assert.Equal(t, 1, seen[itemIDs[10]], "re-visit must not duplicate the row")
}
