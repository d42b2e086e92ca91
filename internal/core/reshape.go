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
	"time"

	"github.com/mio-tools/miofetch/internal/metrics"
	"github.com/mio-tools/miofetch/internal/miolib"
)

// Reshape converts the wide combined dataset into long-format
// measurement records: one record per (target, row) where the target
// cell identifies a real monitored host. Targets are processed in
// ascending slot order and rows in dataset order, so output order is
// deterministic. A target whose column group is absent from the
// dataset contributes nothing; an empty result is not an error.
func Reshape(ds *miolib.Dataset, targets []miolib.Target) []miolib.MeasurementRecord {
	records := []miolib.MeasurementRecord{}
	if ds.Empty() {
		return records
	}

	for _, tgt := range targets {
		if !ds.HasColumn(tgt.TargetColumn) {
			continue
		}
		for _, row := range ds.Rows {
			value, present := row[tgt.TargetColumn]
			if !miolib.ValidTargetValue(value, present) {
				if metrics.IsMetricsEnabled() && present && value != "" {
					metrics.GetMetrics().RecordsDropped.WithLabelValues("invalid_target").Inc()
				}
				continue
			}

			rec := miolib.MeasurementRecord{
				Datetime:     rowDatetime(row),
				Date:         row[miolib.ColDate],
				Time:         row[miolib.ColTime],
				Timezone:     row[miolib.ColTimezone],
				IPAddress:    row[miolib.ColIPAddress],
				SourceFile:   row[miolib.ColSourceFile],
				TargetNumber: tgt.Number,
				Target:       value,
			}
			rec.Transmit = parseCell(row, tgt.TransmitColumn)
			rec.Receive = parseCell(row, tgt.ReceiveColumn)
			rec.LossPct = parseCell(row, tgt.LossPctColumn)
			rec.DelayMin = parseCell(row, tgt.DelayMinColumn)
			rec.DelayAvg = parseCell(row, tgt.DelayAvgColumn)
			rec.DelayMax = parseCell(row, tgt.DelayMaxColumn)
			records = append(records, rec)
		}
	}

	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RecordsProduced.
			WithLabelValues("measurement").Add(float64(len(records)))
	}
	return records
}

func parseCell(row miolib.Row, col string) *float64 {
	v, present := row[col]
	return miolib.ParseNumeric(v, present)
}

func rowDatetime(row miolib.Row) *time.Time {
	v, present := row[miolib.ColDatetime]
	if !present {
		return nil
	}
	ts, ok := miolib.ParseTimestamp(v)
	if !ok {
		return nil
	}
	return &ts
}
