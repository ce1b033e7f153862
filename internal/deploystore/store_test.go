package deploystore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.Record(ctx, Deployment{
		Project: "orders", Tool: "deploy_webapp", Status: "succeeded",
		Bucket: "orders-site-1", StartedAt: base,
	})
	require.NoError(t, err)
	_, err = s.Record(ctx, Deployment{
		Project: "orders", Tool: "deploy_webapp", Status: "succeeded",
		Bucket: "orders-site-2", StartedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = s.Record(ctx, Deployment{
		Project: "orders", Tool: "deploy_webapp", Status: "failed",
		Error: "rollback", StartedAt: base.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	latest, err := s.Latest(ctx, "orders")
	require.NoError(t, err)
	// Failed deployments must not win.
	assert.Equal(t, "orders-site-2", latest.Bucket)
	assert.Equal(t, base.Add(time.Hour), latest.StartedAt)
}

func TestLatestNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Latest(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, project := range []string{"a", "b", "c"} {
		_, err := s.Record(ctx, Deployment{
			Project: project, Tool: "sam_deploy", Status: "succeeded",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Project)
	assert.Equal(t, "b", list[1].Project)
}

func TestUpdateDomain(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Record(ctx, Deployment{
		Project: "orders", Tool: "deploy_webapp", Status: "succeeded",
		StartedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateDomain(ctx, id, "orders.example.com"))

	latest, err := s.Latest(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders.example.com", latest.DomainName)

	assert.True(t, errors.Is(s.UpdateDomain(ctx, "no-such-id", "x"), ErrNotFound))
}
