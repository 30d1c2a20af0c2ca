package livescore

import "testing"

func TestParseStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"IN_PLAY":   StatusInPlay,
		"paused":    StatusPaused,
		"FINISHED":  StatusFinished,
		"TIMED":     StatusScheduled,
		"POSTPONED": StatusScheduled,
		"":          StatusScheduled,
		"garbage":   StatusScheduled,
	}
	for raw, want := range cases {
		if got := ParseStatus(raw); got != want {
			t.Fatalf("ParseStatus(%q) got=%s want=%s", raw, got, want)
		}
	}
}

func TestIsRedCard(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"RED", "red_card", " RED "} {
		if !IsRedCard(code) {
			t.Fatalf("expected %q to be a red card", code)
		}
	}
	for _, code := range []string{"YELLOW", "YELLOW_RED", "SECOND_YELLOW", ""} {
		if IsRedCard(code) {
			t.Fatalf("expected %q not to be a red card", code)
		}
	}
}

func TestValidMinute(t *testing.T) {
	t.Parallel()

	if ValidMinute(0) || ValidMinute(130) || ValidMinute(-3) {
		t.Fatalf("expected boundary minutes to be rejected")
	}
	if !ValidMinute(1) || !ValidMinute(129) {
		t.Fatalf("expected in-range minutes to be accepted")
	}
}
