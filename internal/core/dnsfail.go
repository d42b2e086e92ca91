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
	"strings"

	"github.com/mio-tools/miofetch/internal/metrics"
	"github.com/mio-tools/miofetch/internal/miolib"
)

// ExtractDNSFailures selects the rows Reshape rejects for the opposite
// reason: target cells carrying the device's DNS failure marker. Every
// (target, row) pair lands in exactly one of the two outputs or in
// neither, never in both.
func ExtractDNSFailures(ds *miolib.Dataset, targets []miolib.Target) []miolib.DNSFailureRecord {
	records := []miolib.DNSFailureRecord{}
	if ds.Empty() {
		return records
	}

	for _, tgt := range targets {
		if !ds.HasColumn(tgt.TargetColumn) {
			continue
		}
		for _, row := range ds.Rows {
			value, present := row[tgt.TargetColumn]
			if !present || !strings.HasPrefix(value, miolib.DNSFailurePrefix) {
				continue
			}
			records = append(records, miolib.DNSFailureRecord{
				Datetime:     rowDatetime(row),
				Date:         row[miolib.ColDate],
				Time:         row[miolib.ColTime],
				Timezone:     row[miolib.ColTimezone],
				IPAddress:    row[miolib.ColIPAddress],
				SourceFile:   row[miolib.ColSourceFile],
				TargetNumber: tgt.Number,
				Target:       value,
				FailureType:  miolib.FailureTypeDNS,
			})
		}
	}

	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RecordsProduced.
			WithLabelValues("dns_failure").Add(float64(len(records)))
	}
	return records
}
