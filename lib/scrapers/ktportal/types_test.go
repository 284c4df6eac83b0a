package ktportal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMenuIDIsStable(t *testing.T) {
	a := MenuID("2025-01-15", Lunch, "Korean Food (한식)")
	b := MenuID("2025-01-15", Lunch, "Korean Food (한식)")
	require.Equal(t, a, b)
	require.Positive(t, a)
}

func TestMenuIDDistinguishesInputs(t *testing.T) {
	base := MenuID("2025-01-15", Lunch, "Korean Food (한식)")
	require.NotEqual(t, base, MenuID("2025-01-16", Lunch, "Korean Food (한식)"))
	require.NotEqual(t, base, MenuID("2025-01-15", Dinner, "Korean Food (한식)"))
	require.NotEqual(t, base, MenuID("2025-01-15", Lunch, "Faculty (능수관)"))
}

func TestGridTargets(t *testing.T) {
	grid := DefaultGrid()
	targets := grid.Targets("2025-01-15")
	require.Len(t, targets, grid.Size())
	require.Equal(t, 15, grid.Size())

	// campus, then restaurant, then meal time
	require.Equal(t, CrawlTarget{
		Date:       "2025-01-15",
		DiningTime: Breakfast,
		Restaurant: "Korean Food (한식)",
		Campus:     "Campus1",
	}, targets[0])
	require.Equal(t, Lunch, targets[1].DiningTime)
	require.Equal(t, Dinner, targets[2].DiningTime)
	require.Equal(t, "Onedish Food (일품)", targets[3].Restaurant)

	last := targets[len(targets)-1]
	require.Equal(t, "Campus2", last.Campus)
	require.Equal(t, "코너1", last.Restaurant)
	require.Equal(t, Dinner, last.DiningTime)

	for _, target := range targets {
		require.Equal(t, "2025-01-15", target.Date)
		require.True(t, target.DiningTime.Valid())
	}
}

func TestDiningTimeValid(t *testing.T) {
	require.True(t, Breakfast.Valid())
	require.True(t, Lunch.Valid())
	require.True(t, Dinner.Valid())
	require.False(t, DiningTime("brunch").Valid())
	require.False(t, DiningTime("").Valid())
}
