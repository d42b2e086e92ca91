package miolib

/*
miofetch — ingestion pipeline for monitor-io network monitor CSV exports
Copyright (C) 2026  miofetch authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"testing"
	"time"
)

func TestValidTargetValue(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		value   string
		present bool
		want    bool
	}{
		{"hostname", "host-a.example.com", true, true},
		{"ip address", "8.8.8.8", true, true},
		{"absent", "", false, false},
		{"empty string", "", true, false},
		{"literal nan", "nan", true, false},
		{"dns failure marker", "DNS:FailureTimeout", true, false},
		{"bare prefix", "DNS:Failure", true, false},
		{"prefix not at start", "host DNS:Failure", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidTargetValue(tc.value, tc.present); got != tc.want {
				t.Errorf("ValidTargetValue(%q, %v) = %v, want %v", tc.value, tc.present, got, tc.want)
			}
		})
	}
}

func TestParseNumeric(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		value   string
		present bool
		want    *float64
	}{
		{"integer", "10", true, ptr(10)},
		{"float", "23.5", true, ptr(23.5)},
		{"padded", " 5 ", true, ptr(5)},
		{"absent", "", false, nil},
		{"empty", "", true, nil},
		{"garbage", "n/a", true, nil},
		{"nan stays null", "NaN", true, nil},
		{"inf stays null", "+Inf", true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseNumeric(tc.value, tc.present)
			switch {
			case got == nil && tc.want == nil:
			case got == nil || tc.want == nil:
				t.Errorf("ParseNumeric(%q) = %v, want %v", tc.value, got, tc.want)
			case *got != *tc.want:
				t.Errorf("ParseNumeric(%q) = %v, want %v", tc.value, *got, *tc.want)
			}
		})
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024/03/01 14:30:00", time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-03-01 14:30:00", time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		ts, ok := ParseTimestamp(tc.in)
		if !ok {
			t.Errorf("ParseTimestamp(%q) failed", tc.in)
			continue
		}
		if !ts.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.in, ts, tc.want)
		}
	}

	if _, ok := ParseTimestamp("yesterday"); ok {
		t.Error("ParseTimestamp accepted garbage")
	}
	if _, ok := ParseTimestamp(""); ok {
		t.Error("ParseTimestamp accepted empty string")
	}
}

func TestComposeDatetime(t *testing.T) {
	t.Parallel()
	row := Row{ColDate: "2024/03/01", ColTime: "14:30:00"}
	ts, ok := ComposeDatetime(row)
	if !ok {
		t.Fatal("ComposeDatetime failed on valid Date+Time pair")
	}
	want := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ComposeDatetime = %v, want %v", ts, want)
	}

	if _, ok := ComposeDatetime(Row{ColDate: "2024/03/01"}); ok {
		t.Error("ComposeDatetime succeeded without Time column")
	}
	if _, ok := ComposeDatetime(Row{ColDate: "bad", ColTime: "values"}); ok {
		t.Error("ComposeDatetime succeeded on unparsable pair")
	}
}

func TestDatasetColumns(t *testing.T) {
	t.Parallel()
	var d Dataset
	d.AddColumn("Date")
	d.AddColumn("Target1")
	d.AddColumn("Date")
	if len(d.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", d.Columns)
	}
	if !d.HasColumn("Target1") || d.HasColumn("Target2") {
		t.Error("HasColumn gave wrong answers")
	}
	if !d.Empty() {
		t.Error("dataset with no rows should be Empty")
	}
}

func ptr(f float64) *float64 { return &f }
