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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Target describes one numbered slot in the device's wide schema and
// the fixed column-name group derived from it. Descriptors are the
// single source of truth for both the reshaper and the DNS failure
// extractor; nothing else re-scans column names.
type Target struct {
	Number         int
	TargetColumn   string
	TransmitColumn string
	ReceiveColumn  string
	LossPctColumn  string
	DelayMinColumn string
	DelayAvgColumn string
	DelayMaxColumn string
}

// NewTarget builds the descriptor for slot n.
func NewTarget(n int) Target {
	return Target{
		Number:         n,
		TargetColumn:   fmt.Sprintf("Target%d", n),
		TransmitColumn: fmt.Sprintf("Transmit%d", n),
		ReceiveColumn:  fmt.Sprintf("Receive%d", n),
		LossPctColumn:  fmt.Sprintf("LossPct%d", n),
		DelayMinColumn: fmt.Sprintf("DelayMin%d", n),
		DelayAvgColumn: fmt.Sprintf("DelayAvg%d", n),
		DelayMaxColumn: fmt.Sprintf("DelayMax%d", n),
	}
}

// DiscoverTargets scans column names for the Target<N> pattern and
// returns one descriptor per distinct slot number, ascending. Known
// devices use slots 1-6 but nothing here assumes an upper bound.
func DiscoverTargets(columns []string) []Target {
	seen := make(map[int]bool)
	for _, col := range columns {
		n, ok := parseTargetColumn(col)
		if ok && !seen[n] {
			seen[n] = true
		}
	}

	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	targets := make([]Target, 0, len(numbers))
	for _, n := range numbers {
		targets = append(targets, NewTarget(n))
	}
	return targets
}

// parseTargetColumn matches names of the exact form Target<digits>.
// TargetHost or Target1x are not slot columns.
func parseTargetColumn(col string) (int, bool) {
	suffix, ok := strings.CutPrefix(col, "Target")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return n, true
}
