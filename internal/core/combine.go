package core

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
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mio-tools/miofetch/internal/miolib"
)

// canonicalTimestampLayout is the form standardized and composed
// timestamps are written back in. It must round-trip through
// miolib.ParseTimestamp.
const canonicalTimestampLayout = "2006-01-02 15:04:05"

// timestampCandidates are checked in order when standardizing. The
// match is exact and lowercase: the device's own "Date"/"Time" pair is
// deliberately not matched here, it is composed separately.
var timestampCandidates = []string{"timestamp", "time", "datetime", "date"}

// Combine folds downloaded files into one dataset. Columns are the
// union across files in first-appearance order; rows keep file order
// and, within a file, row order. Rows from a file that lacks a column
// simply never get the key, so the union is an outer join with nulls.
func Combine(files []*miolib.FileData) (*miolib.Dataset, error) {
	ds := &miolib.Dataset{}
	for _, fd := range files {
		if fd == nil {
			continue
		}
		if len(fd.Rows) > 0 && len(fd.Columns) == 0 {
			return nil, &miolib.ProcessingError{
				Op:  "combining data files",
				Err: errors.New("file " + fd.Name + " has rows but no columns"),
			}
		}
		for _, col := range fd.Columns {
			ds.AddColumn(col)
		}
		ds.Rows = append(ds.Rows, fd.Rows...)
	}
	return ds, nil
}

// StandardizeTimestamps finds the first candidate timestamp column
// whose every non-null value parses, rewrites it in canonical form,
// and stably sorts the dataset by it ascending with nulls last. It
// returns the column used, or "" when no candidate qualifies — which
// is the normal outcome for device exports, since those carry a
// capitalized Date/Time pair instead.
func StandardizeTimestamps(ds *miolib.Dataset, lg *zap.Logger) string {
	for _, col := range timestampCandidates {
		if !ds.HasColumn(col) {
			continue
		}
		parsed, ok := parseTimestampColumn(ds.Rows, col)
		if !ok {
			lg.Debug("timestamp column did not fully parse, trying next candidate",
				zap.String("column", col))
			continue
		}

		order := make([]int, len(ds.Rows))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			ti, tj := parsed[order[a]], parsed[order[b]]
			switch {
			case ti == nil:
				return false
			case tj == nil:
				return true
			default:
				return ti.Before(*tj)
			}
		})

		sorted := make([]miolib.Row, len(ds.Rows))
		for i, idx := range order {
			sorted[i] = ds.Rows[idx]
			if ts := parsed[idx]; ts != nil {
				sorted[i][col] = ts.Format(canonicalTimestampLayout)
			}
		}
		ds.Rows = sorted
		return col
	}
	return ""
}

// parseTimestampColumn parses every present, non-empty value in the
// column. The second result is false if any value fails to parse.
func parseTimestampColumn(rows []miolib.Row, col string) (map[int]*time.Time, bool) {
	parsed := make(map[int]*time.Time, len(rows))
	for i, row := range rows {
		v, present := row[col]
		if !present || v == "" {
			parsed[i] = nil
			continue
		}
		ts, ok := miolib.ParseTimestamp(v)
		if !ok {
			return nil, false
		}
		parsed[i] = &ts
	}
	return parsed, true
}

// ComposeDatetimes derives the combined datetime column from the
// device's separate Date and Time cells. Whenever both source columns
// exist the composition wins, replacing any datetime values a
// standardized export brought along; rows where either half is absent
// or unparsable end up null. Without a Date/Time pair the dataset is
// left untouched, standardized datetime column included.
func ComposeDatetimes(ds *miolib.Dataset) {
	if !ds.HasColumn(miolib.ColDate) || !ds.HasColumn(miolib.ColTime) {
		return
	}
	for _, row := range ds.Rows {
		if ts, ok := miolib.ComposeDatetime(row); ok {
			row[miolib.ColDatetime] = ts.Format(canonicalTimestampLayout)
		} else {
			delete(row, miolib.ColDatetime)
		}
	}
	ds.AddColumn(miolib.ColDatetime)
}
