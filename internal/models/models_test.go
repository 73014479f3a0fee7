package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]Status{
		"":            StatusPending,
		"pending":     StatusPending,
		"In progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"Ongoing":     StatusInProgress,
		" FIXED ":     StatusFixed,
		"not  fixed":  StatusRejected,
		"Rejected":    StatusRejected,
		"archived":    StatusUnknown,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseStatus(in), in)
	}
}

func TestStatusTransitions(t *testing.T) {
	require.True(t, StatusPending.CanTransitionTo(StatusFixed))
	require.False(t, StatusPending.CanTransitionTo(StatusPending))
	require.False(t, StatusFixed.CanTransitionTo(StatusRejected))
	require.Empty(t, StatusUnknown.Next())
	require.False(t, StatusUnknown.Known())

	next := StatusPending.Next()
	next[0] = StatusRejected
	require.Equal(t, StatusInProgress, StatusPending.Next()[0], "Next must return a copy")

	require.True(t, StatusPending.Cancelable())
	require.False(t, StatusFixed.Cancelable())
	require.True(t, StatusRejected.Resolved())
}

func TestParseCategory(t *testing.T) {
	require.Equal(t, CategoryElectrical, ParseCategory("electrical-damage"))
	require.Equal(t, CategoryPiping, ParseCategory("Pipping"))
	require.Equal(t, CategoryPestControl, ParseCategory("pest_control"))
	require.Equal(t, Category("Lift"), ParseCategory("  Lift "))

	require.True(t, CategoryCivil.Known())
	require.False(t, Category("Lift").Known())
	require.Equal(t, CategoryOther, Category("Lift").Bucket())
	require.Equal(t, CategorySanitary, Category("sanitary").Bucket())
}

func TestReportDecodeNormalizes(t *testing.T) {
	var r Report
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","category":"civil-damage","status":"ongoing"}`), &r))
	require.Equal(t, CategoryCivil, r.Category)
	require.Equal(t, StatusInProgress, r.Status)
}

func TestDaysElapsed(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	r := Report{CreatedAt: created}
	require.Equal(t, 0, r.DaysElapsed(created.Add(23*time.Hour)))
	require.Equal(t, 3, r.DaysElapsed(created.Add(72*time.Hour+time.Minute)))
	require.Equal(t, 0, r.DaysElapsed(created.Add(-time.Hour)))
}

func TestScopeFor(t *testing.T) {
	scope, ok := ScopeFor(&User{ID: "u1", Role: RoleAdmin})
	require.True(t, ok)
	require.True(t, scope.All())

	scope, ok = ScopeFor(&User{ID: "u2", Role: RoleUser})
	require.True(t, ok)
	require.Equal(t, "u2", scope.StudentID)

	_, ok = ScopeFor(nil)
	require.False(t, ok)
	require.Equal(t, RoleAdmin, ParseRole(" Admin "))
	require.Equal(t, RoleUser, ParseRole("staff"))
}
