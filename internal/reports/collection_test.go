package reports

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ezfix/portal/internal/apiclient"
	"github.com/ezfix/portal/internal/models"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	reports []models.Report
	err     error
	scopes  []models.Scope
}

func (s *stubSource) ListReports(_ context.Context, scope models.Scope) ([]models.Report, error) {
	s.scopes = append(s.scopes, scope)
	return s.reports, s.err
}

func TestFetchStoresList(t *testing.T) {
	src := &stubSource{reports: sample()}
	c := NewCollection(src)
	refreshed := 0
	c.OnRefresh(func() { refreshed++ })

	require.NoError(t, c.Fetch(context.Background(), models.ScopeOwn("s1")))

	require.Equal(t, 6, c.Len())
	require.Empty(t, c.Err())
	require.Equal(t, 1, refreshed)
	require.Equal(t, []models.Scope{{StudentID: "s1"}}, src.scopes)

	require.NoError(t, c.Refetch(context.Background()))
	require.Equal(t, models.ScopeOwn("s1"), src.scopes[1])
	require.Equal(t, 2, refreshed)
}

func TestFetchFailureEmptiesList(t *testing.T) {
	src := &stubSource{reports: sample()}
	c := NewCollection(src)
	require.NoError(t, c.Fetch(context.Background(), models.ScopeAll))

	src.err = &apiclient.APIError{StatusCode: http.StatusInternalServerError, Message: "Database offline"}
	err := c.Fetch(context.Background(), models.ScopeAll)

	require.True(t, apiclient.IsStatus(err, http.StatusInternalServerError))
	require.Zero(t, c.Len())
	require.Equal(t, "Database offline", c.Err())
}

func TestFetchUnreachableMessage(t *testing.T) {
	c := NewCollection(&stubSource{err: apiclient.ErrUnreachable})
	err := c.Fetch(context.Background(), models.ScopeAll)
	require.True(t, errors.Is(err, apiclient.ErrUnreachable))
	require.Equal(t, msgUnreachable, c.Err())
}

func TestReplaceTouchesOnlyMatchingEntry(t *testing.T) {
	c := NewCollection(&stubSource{reports: sample()})
	require.NoError(t, c.Fetch(context.Background(), models.ScopeAll))
	before := c.Items()

	r, _ := c.Get("4")
	r.Status = models.StatusFixed
	require.True(t, c.Replace(r))
	require.False(t, c.Replace(models.Report{ID: "missing"}))

	after := c.Items()
	for i := range before {
		if after[i].ID == "4" {
			require.Equal(t, models.StatusFixed, after[i].Status)
			continue
		}
		require.Equal(t, before[i], after[i])
	}
}

func TestRemoveDropsOneEntry(t *testing.T) {
	c := NewCollection(&stubSource{reports: sample()})
	require.NoError(t, c.Fetch(context.Background(), models.ScopeAll))
	snapshot := c.Items()

	require.True(t, c.Remove("2"))
	require.False(t, c.Remove("2"))

	require.Equal(t, 5, c.Len())
	_, ok := c.Get("2")
	require.False(t, ok)
	require.Len(t, snapshot, 6)
}
