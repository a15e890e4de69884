package scheduler

import (
	"testing"
	"time"
)

var testLoc = time.FixedZone("UTC+3", 3*3600)

func at(h, m, s int) time.Time {
	return time.Date(2026, 5, 20, h, m, s, 0, testLoc)
}

func TestParseAt(t *testing.T) {
	tr, err := ParseAt("")
	if err != nil || tr != (Trigger{Hour: 8, Minute: 1}) {
		t.Fatalf("default: got %v err=%v", tr, err)
	}
	tr, err = ParseAt(" 23:59 ")
	if err != nil || tr.String() != "23:59" {
		t.Fatalf("23:59: got %v err=%v", tr, err)
	}
	for _, bad := range []string{"8", "24:00", "07:60", "aa:bb", "1:2:3"} {
		if _, err := ParseAt(bad); err == nil {
			t.Fatalf("ParseAt(%q) expected error", bad)
		}
	}
}

func TestShouldRunAroundTarget(t *testing.T) {
	tr := Trigger{Hour: 8, Minute: 1}
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(7, 59, 0), false},
		{at(8, 0, 0), true}, // 60s before target
		{at(8, 0, 45), true},
		{at(8, 1, 0), true},
		{at(8, 1, 30), true},
		{at(8, 1, 59), true},
		{at(8, 2, 0), false},
		{at(20, 0, 0), false},
	}
	for _, c := range cases {
		if got := tr.ShouldRun(c.now, time.Time{}); got != c.want {
			t.Fatalf("ShouldRun(%s) = %v, want %v", c.now.Format("15:04:05"), got, c.want)
		}
	}
}

func TestShouldRunOncePerDate(t *testing.T) {
	tr := Trigger{Hour: 8, Minute: 1}
	today := time.Date(2026, 5, 20, 0, 0, 0, 0, testLoc)
	yesterday := today.AddDate(0, 0, -1)

	if tr.ShouldRun(at(8, 1, 10), today) {
		t.Fatal("ran twice on the same date")
	}
	if !tr.ShouldRun(at(8, 1, 10), yesterday) {
		t.Fatal("did not run after yesterday's run")
	}
	// A marker from "the future" (clock moved back) also blocks.
	if tr.ShouldRun(at(8, 1, 10), today.AddDate(0, 0, 1)) {
		t.Fatal("ran with a marker dated after today")
	}
}

func TestEvaluateDecisionFields(t *testing.T) {
	tr := Trigger{Hour: 8, Minute: 1}

	d := tr.Evaluate(at(8, 0, 45), time.Time{})
	if !d.InWindow || d.ExactTime || d.TimeDiff != 15*time.Second {
		t.Fatalf("approach: %+v", d)
	}

	d = tr.Evaluate(at(8, 1, 30), time.Time{})
	if !d.ExactTime || d.InWindow {
		t.Fatalf("inside minute: %+v", d)
	}
	wantTarget := time.Date(2026, 5, 21, 8, 1, 0, 0, testLoc)
	if !d.Target.Equal(wantTarget) {
		t.Fatalf("target = %v, want %v (rolled to tomorrow)", d.Target, wantTarget)
	}
}

func TestEvaluateUsesMarkerDateInNowLocation(t *testing.T) {
	tr := Trigger{Hour: 8, Minute: 1}
	// 22:30 UTC on the 19th is 01:30 on the 20th at UTC+3.
	last := time.Date(2026, 5, 19, 22, 30, 0, 0, time.UTC)
	if tr.ShouldRun(at(8, 1, 0), last) {
		t.Fatal("marker should count as today in the trigger's location")
	}
}

func TestSameDate(t *testing.T) {
	if !SameDate(at(0, 0, 0), at(23, 59, 59)) {
		t.Fatal("same day reported different")
	}
	if SameDate(at(23, 59, 59), at(0, 0, 0).AddDate(0, 0, 1)) {
		t.Fatal("different days reported same")
	}
}
