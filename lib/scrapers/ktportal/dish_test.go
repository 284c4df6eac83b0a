package ktportal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestSplitDishBlock(t *testing.T) {
	cases := []struct {
		name        string
		text        string
		expectItems []string
		expectPrice int
		expectKcal  int
	}{
		{
			name:        "items with trailing annotations",
			text:        "김치찌개\n계란말이\n밥\n김치\n650 kcal\n5,000 원",
			expectItems: []string{"김치찌개", "계란말이", "밥", "김치"},
			expectPrice: 5000,
			expectKcal:  650,
		},
		{
			name:        "annotations in reverse order",
			text:        "된장찌개\n공기밥\n5,500 원\n720 kcal",
			expectItems: []string{"된장찌개", "공기밥"},
			expectPrice: 5500,
			expectKcal:  720,
		},
		{
			name:        "no annotations",
			text:        "비빔밥\n미역국",
			expectItems: []string{"비빔밥", "미역국"},
		},
		{
			name:        "annotations only",
			text:        "650 kcal\n5,000 원",
			expectPrice: 5000,
			expectKcal:  650,
		},
		{
			name: "empty block",
			text: "",
		},
		{
			name:        "blank lines and padding",
			text:        "  돈까스  \n\n  샐러드\n\n780 kcal\n",
			expectItems: []string{"돈까스", "샐러드"},
			expectKcal:  780,
		},
		{
			name:        "uppercase kcal suffix",
			text:        "카레라이스\n800 KCAL",
			expectItems: []string{"카레라이스"},
			expectKcal:  800,
		},
		{
			name: "kcal-like text mid-list stays an item",
			// only *trailing* annotation lines are stripped
			text:        "650 kcal 특선\n제육볶음\n4,500 원",
			expectItems: []string{"650 kcal 특선", "제육볶음"},
			expectPrice: 4500,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			items, price, kcal := splitDishBlock(test.text)
			if diff := cmp.Diff(test.expectItems, items, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("items mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, test.expectPrice, price)
			require.Equal(t, test.expectKcal, kcal)
		})
	}
}

func TestSafeInt(t *testing.T) {
	cases := map[string]int{
		"5000":    5000,
		"5,000":   5000,
		" 1,250 ": 1250,
		"":        0,
		"-":       0,
		"NULL":    0,
		"null":    0,
		"None":    0,
		"abc":     0,
	}
	for input, expect := range cases {
		require.Equal(t, expect, safeInt(input), "input %q", input)
	}
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Korean Food (한식)", cleanText("  Korean   Food (한식)\n"))
	require.Equal(t, "", cleanText(" \t\n"))
}
