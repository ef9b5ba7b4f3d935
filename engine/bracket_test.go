/*
bracket_test.go - Bracket table validation and lookup tests

PURPOSE:

	Bracket tables back both pricing (package-size brackets) and pay rates
	(class-count brackets), so the coverage rules here are load-bearing for
	every money computation downstream. The key guarantee: a table that
	passes ValidateBrackets maps every count >= 1 to exactly one bracket.
*/
package engine_test

import (
	"errors"
	"testing"

	"github.com/pulsefit/income-engine/engine"
)

func standardTable() []engine.Bracket {
	return []engine.Bracket{
		engine.NewBracket(1, 12),
		engine.NewBracket(13, 20),
		engine.NewOpenBracket(21),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidateBrackets_AcceptsContiguousTable(t *testing.T) {
	if err := engine.ValidateBrackets(standardTable()); err != nil {
		t.Fatalf("standard table should validate: %v", err)
	}
}

func TestValidateBrackets_RejectsBadTables(t *testing.T) {
	cases := []struct {
		name     string
		brackets []engine.Bracket
	}{
		{"empty", nil},
		{"starts above one", []engine.Bracket{
			engine.NewBracket(2, 12),
			engine.NewOpenBracket(13),
		}},
		{"gap between brackets", []engine.Bracket{
			engine.NewBracket(1, 12),
			engine.NewBracket(14, 20),
			engine.NewOpenBracket(21),
		}},
		{"overlap between brackets", []engine.Bracket{
			engine.NewBracket(1, 12),
			engine.NewBracket(12, 20),
			engine.NewOpenBracket(21),
		}},
		{"no unbounded tail", []engine.Bracket{
			engine.NewBracket(1, 12),
			engine.NewBracket(13, 20),
		}},
		{"unbounded in the middle", []engine.Bracket{
			engine.NewOpenBracket(1),
			engine.NewBracket(13, 20),
			engine.NewOpenBracket(21),
		}},
		{"inverted bracket", []engine.Bracket{
			engine.NewBracket(1, 0),
			engine.NewOpenBracket(2),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.ValidateBrackets(tc.brackets)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, engine.ErrBracketGap) {
				t.Errorf("error should wrap ErrBracketGap, got: %v", err)
			}
		})
	}
}

// =============================================================================
// LOOKUP
// =============================================================================

func TestFindBracket_BoundariesMapExactly(t *testing.T) {
	// The bracket edges are where pricing and pay rates step, so the
	// boundary counts are the ones worth pinning.
	table := standardTable()

	cases := []struct {
		count int
		want  int
	}{
		{1, 0}, {12, 0},
		{13, 1}, {20, 1},
		{21, 2}, {500, 2},
	}
	for _, tc := range cases {
		i, err := engine.FindBracket(table, tc.count)
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", tc.count, err)
		}
		if i != tc.want {
			t.Errorf("count %d: got bracket %d, want %d", tc.count, i, tc.want)
		}
	}
}

func TestFindBracket_ValidatedTableCoversEveryPositiveCount(t *testing.T) {
	// A validated table must have no holes. Scan a generous range.
	table := standardTable()
	if err := engine.ValidateBrackets(table); err != nil {
		t.Fatalf("table should validate: %v", err)
	}
	for n := 1; n <= 200; n++ {
		if _, err := engine.FindBracket(table, n); err != nil {
			t.Fatalf("count %d has no bracket: %v", n, err)
		}
	}
}

func TestFindBracket_NoMatchReturnsErrNoBracket(t *testing.T) {
	table := []engine.Bracket{engine.NewBracket(5, 10)}

	_, err := engine.FindBracket(table, 3)
	if !errors.Is(err, engine.ErrNoBracket) {
		t.Errorf("expected ErrNoBracket, got: %v", err)
	}
}

func TestBracket_String(t *testing.T) {
	if got := engine.NewBracket(1, 12).String(); got != "1-12" {
		t.Errorf("bounded: got %q", got)
	}
	if got := engine.NewOpenBracket(21).String(); got != "21+" {
		t.Errorf("unbounded: got %q", got)
	}
}
