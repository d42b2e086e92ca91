package miolib

import "testing"

func TestDiscoverTargets(t *testing.T) {
	t.Parallel()
	columns := []string{
		"Date", "Time", "Timezone", "IPAddress",
		"Target2", "Transmit2", "DelayAvg2",
		"Target1", "Transmit1",
		"Target10",
		"TargetHost", // not a slot column
		"Target",     // no number
		"Target1",    // duplicate
		"source_file",
	}
	targets := DiscoverTargets(columns)
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d: %+v", len(targets), targets)
	}
	wantNumbers := []int{1, 2, 10}
	for i, want := range wantNumbers {
		if targets[i].Number != want {
			t.Errorf("targets[%d].Number = %d, want %d (ascending order)", i, targets[i].Number, want)
		}
	}
}

func TestNewTargetColumnGroup(t *testing.T) {
	t.Parallel()
	tgt := NewTarget(3)
	cases := map[string]string{
		tgt.TargetColumn:   "Target3",
		tgt.TransmitColumn: "Transmit3",
		tgt.ReceiveColumn:  "Receive3",
		tgt.LossPctColumn:  "LossPct3",
		tgt.DelayMinColumn: "DelayMin3",
		tgt.DelayAvgColumn: "DelayAvg3",
		tgt.DelayMaxColumn: "DelayMax3",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("column = %q, want %q", got, want)
		}
	}
}

func TestDiscoverTargetsEmpty(t *testing.T) {
	t.Parallel()
	if targets := DiscoverTargets([]string{"Date", "Time"}); len(targets) != 0 {
		t.Errorf("expected no targets, got %+v", targets)
	}
}
