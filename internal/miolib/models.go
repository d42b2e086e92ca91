/*
Package miolib models the data published by a monitor-io network monitor
and implements the device-facing operations: index-page link discovery,
CSV download, and parsing into sparse rows.

The device exports wide CSV files: one row per sample timestamp with a
repeated column group per monitored target (Target1, Transmit1, ... up
to however many slots the device has configured). Different export files
can carry different column sets, so rows are modeled as sparse maps and
datasets carry the union of all source columns.
*/
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
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DNSFailurePrefix marks a target slot whose hostname could not be
// resolved at that sample: the device writes "DNS:Failure..." into the
// column that normally holds the target identifier.
const DNSFailurePrefix = "DNS:Failure"

// FailureTypeDNS is the failure_type tag on DNSFailureRecord.
const FailureTypeDNS = "DNS"

// Base column names shared by every target's records.
const (
	ColDatetime   = "datetime"
	ColDate       = "Date"
	ColTime       = "Time"
	ColTimezone   = "Timezone"
	ColIPAddress  = "IPAddress"
	ColSourceFile = "source_file"
)

// Row is one sparse CSV row: column name to raw string value. An absent
// key is a null — rows from a file that lacks a column simply never get
// the key. A present empty string is an empty cell, which every
// downstream validity and numeric check treats the same as null.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is an ordered sequence of rows sharing a union column set.
// Columns keeps first-appearance order across source files.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the union column set contains name.
func (d *Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// AddColumn appends a column to the union set if not already present.
func (d *Dataset) AddColumn(name string) {
	if !d.HasColumn(name) {
		d.Columns = append(d.Columns, name)
	}
}

// Empty reports whether the dataset holds no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// MeasurementRecord is one (target, timestamp) ping observation in long
// format. Numeric fields are pointers: an unparsable or absent value is
// null, never an error and never a stringly-typed leftover.
type MeasurementRecord struct {
	Datetime     *time.Time `json:"datetime"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Timezone     string     `json:"timezone"`
	IPAddress    string     `json:"ip_address"`
	SourceFile   string     `json:"source_file"`
	TargetNumber int        `json:"target_number"`
	Target       string     `json:"target"`
	Transmit     *float64   `json:"transmit"`
	Receive      *float64   `json:"receive"`
	LossPct      *float64   `json:"loss_pct"`
	DelayMin     *float64   `json:"delay_min"`
	DelayAvg     *float64   `json:"delay_avg"`
	DelayMax     *float64   `json:"delay_max"`
}

// DNSFailureRecord is one (target, timestamp) DNS resolution failure.
// Target carries the raw failure marker string from the device.
type DNSFailureRecord struct {
	Datetime     *time.Time `json:"datetime"`
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	Timezone     string     `json:"timezone"`
	IPAddress    string     `json:"ip_address"`
	SourceFile   string     `json:"source_file"`
	TargetNumber int        `json:"target_number"`
	Target       string     `json:"target"`
	FailureType  string     `json:"failure_type"`
}

// TargetSummaryEntry is one unique (slot, identifier) pair observed
// across the combined dataset.
type TargetSummaryEntry struct {
	TargetNumber int    `json:"target_number"`
	Target       string `json:"target"`
}

// ValidTargetValue reports whether a raw TargetN cell identifies a real
// monitored target: present, non-empty, not the literal "nan" the
// device occasionally emits, and not a DNS failure marker.
func ValidTargetValue(value string, present bool) bool {
	if !present || value == "" || value == "nan" {
		return false
	}
	return !strings.HasPrefix(value, DNSFailurePrefix)
}

// ParseNumeric coerces a raw cell to a float. Absent cells, empty
// cells, and anything strconv rejects become null. NaN and infinities
// also map to null so records always serialize cleanly.
func ParseNumeric(value string, present bool) *float64 {
	if !present {
		return nil
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// timestampLayouts are tried in order when parsing device timestamps.
// The device's own Date+Time pair is "YYYY/MM/DD" + "HH:MM:SS"; the
// remaining layouts cover exports that carry a single combined column.
var timestampLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006-01-02",
	"01/02/2006",
}

// ParseTimestamp parses a device timestamp string against the known
// layouts. The second result is false when no layout matches.
func ParseTimestamp(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ComposeDatetime builds the combined timestamp from a row's separate
// Date and Time cells. Returns false when either is absent or the pair
// does not parse.
func ComposeDatetime(row Row) (time.Time, bool) {
	date, okDate := row[ColDate]
	tm, okTime := row[ColTime]
	if !okDate || !okTime {
		return time.Time{}, false
	}
	return ParseTimestamp(date + " " + tm)
}
