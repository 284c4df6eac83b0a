package mealstore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.csv")
	require.NoError(t, ExportCSV(path, testRecords()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, csvBom))

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, csvBom))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{"date", "dining_time", "place", "price", "kcal", "menu_items"}, rows[0])
	require.Equal(t, []string{
		"2025-01-15", "lunch", "Korean Food (한식)", "5000", "650",
		"김치찌개; 계란말이; 밥; 김치",
	}, rows[1])
	require.Equal(t, "2025-01-16", rows[2][0])
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.json")
	require.NoError(t, ExportJSON(path, testRecords()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []exportedMenu
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 2)

	require.Equal(t, exportedMenu{
		Date:       "2025-01-15",
		DiningTime: "lunch",
		Place:      "Korean Food (한식)",
		Price:      5000,
		Kcal:       650,
		Menu:       []string{"김치찌개", "계란말이", "밥", "김치"},
	}, out[0])
}

func TestExportEmpty(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, ExportCSV(csvPath, nil))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, csvBom))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	jsonPath := filepath.Join(dir, "empty.json")
	require.NoError(t, ExportJSON(jsonPath, nil))
	raw, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}
