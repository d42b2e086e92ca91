package miolib

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCSVTagsRowsWithSourceFile(t *testing.T) {
	t.Parallel()
	body := "Date,Time,Target1,DelayAvg1\n" +
		"2024/03/01,14:30:00,host-a,23.5\n" +
		"2024/03/01,14:31:00,host-a,24.1\n"

	rows, columns, err := ParseCSV(strings.NewReader(body), "results.csv")
	if err != nil {
		t.Fatalf("ParseCSV error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	wantCols := []string{"Date", "Time", "Target1", "DelayAvg1", "source_file"}
	if len(columns) != len(wantCols) {
		t.Fatalf("columns = %v, want %v", columns, wantCols)
	}
	for i := range wantCols {
		if columns[i] != wantCols[i] {
			t.Errorf("columns[%d] = %q, want %q", i, columns[i], wantCols[i])
		}
	}
	for _, row := range rows {
		if row[ColSourceFile] != "results.csv" {
			t.Errorf("row missing source_file tag: %v", row)
		}
	}
	if rows[1]["DelayAvg1"] != "24.1" {
		t.Errorf("rows[1][DelayAvg1] = %q, want 24.1", rows[1]["DelayAvg1"])
	}
}

func TestParseCSVRaggedRowsLeaveNulls(t *testing.T) {
	t.Parallel()
	body := "Date,Time,Target1\n" +
		"2024/03/01,14:30:00\n"

	rows, _, err := ParseCSV(strings.NewReader(body), "short.csv")
	if err != nil {
		t.Fatalf("ParseCSV error: %v", err)
	}
	if _, present := rows[0]["Target1"]; present {
		t.Error("missing trailing cell should stay null, not empty string")
	}
	if rows[0]["Date"] != "2024/03/01" {
		t.Errorf("Date = %q", rows[0]["Date"])
	}
}

func TestParseCSVEmptyBodies(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
	}{
		{"zero bytes", ""},
		{"header only", "Date,Time,Target1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseCSV(strings.NewReader(tc.body), "empty.csv")
			if !errors.Is(err, ErrEmptyCSV) {
				t.Fatalf("expected ErrEmptyCSV, got %v", err)
			}
		})
	}
}
