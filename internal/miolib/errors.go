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
	"context"
	"errors"
	"fmt"
	"net"
)

// The pipeline's error taxonomy. Only three conditions are fatal to a
// run: bad configuration (ValidationError), an unreachable device
// (ConnectionError), and a failed index-page fetch or dataset
// combination (FetchError / ProcessingError). Per-file download and
// parse failures never surface as errors; the batch absorbs them.

// ValidationError reports bad configuration detected before any
// network activity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ConnectionError means the monitor-io device could not be reached at
// all.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to monitor-io device at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FetchError reports a failed request: a timeout, a non-2xx status, or
// any other transport problem. Status is zero unless an HTTP response
// was received; Timeout distinguishes the deadline case.
type FetchError struct {
	URL     string
	Status  int
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("request timeout accessing %s", e.URL)
	case e.Status != 0:
		return fmt.Sprintf("HTTP error %d accessing %s", e.Status, e.URL)
	default:
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ProcessingError reports a failure while combining or restructuring
// datasets. It indicates structurally incompatible inputs and is fatal
// to the run.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ClassifyRequestError maps a transport-level error from the HTTP
// client onto the taxonomy: timeouts become FetchError with Timeout
// set, dial-level failures become ConnectionError, everything else a
// generic FetchError.
func ClassifyRequestError(url string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{URL: url, Timeout: true, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{URL: url, Timeout: true, Err: err}
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return &ConnectionError{URL: url, Err: err}
	}
	return &FetchError{URL: url, Err: err}
}
