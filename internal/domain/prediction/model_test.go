package prediction

import "testing"

func TestIsCorrect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		predicted Outcome
		home      int
		away      int
		want      bool
	}{
		{name: "home win predicted home", predicted: OutcomeHome, home: 2, away: 1, want: true},
		{name: "away win predicted home", predicted: OutcomeHome, home: 1, away: 2, want: false},
		{name: "draw predicted home", predicted: OutcomeHome, home: 1, away: 1, want: false},
		{name: "draw predicted draw", predicted: OutcomeDraw, home: 1, away: 1, want: true},
		{name: "goalless predicted draw", predicted: OutcomeDraw, home: 0, away: 0, want: true},
		{name: "away win predicted away", predicted: OutcomeAway, home: 0, away: 3, want: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsCorrect(tc.predicted, tc.home, tc.away); got != tc.want {
				t.Fatalf("IsCorrect(%s, %d, %d) got=%v want=%v", tc.predicted, tc.home, tc.away, got, tc.want)
			}
		})
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Outcome{"h": OutcomeHome, "Draw": OutcomeDraw, "2": OutcomeAway, " x ": OutcomeDraw} {
		got, ok := ParseOutcome(raw)
		if !ok || got != want {
			t.Fatalf("ParseOutcome(%q) got=%s ok=%v want=%s", raw, got, ok, want)
		}
	}
	if _, ok := ParseOutcome("win"); ok {
		t.Fatalf("expected unknown outcome to be rejected")
	}
}
