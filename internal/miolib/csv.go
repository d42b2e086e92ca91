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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyCSV is returned when a file parses but contains no data
// rows. An export with only a header is treated like a failed
// download: the file contributes nothing.
var ErrEmptyCSV = errors.New("csv contains no data rows")

// ParseCSV parses one export body into sparse rows. Every row is
// tagged with the source file name; the returned column list is the
// header order with source_file appended.
//
// The device occasionally writes short rows when a sample was cut off
// at export time, so ragged records are tolerated: missing trailing
// cells simply stay null, and surplus cells are dropped.
func ParseCSV(r io.Reader, sourceFile string) ([]Row, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading csv record: %w", err)
		}

		row := make(Row, len(header)+1)
		for i, col := range header {
			if col == "" || i >= len(record) {
				continue
			}
			row[col] = record[i]
		}
		row[ColSourceFile] = sourceFile
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil, ErrEmptyCSV
	}

	columns := make([]string, 0, len(header)+1)
	for _, col := range header {
		if col != "" {
			columns = append(columns, col)
		}
	}
	columns = append(columns, ColSourceFile)
	return rows, columns, nil
}
