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
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestFetchIndexReturnsBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><a href=\"data.csv\">data</a></html>"))
	}))
	defer srv.Close()

	body, err := FetchIndex(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("FetchIndex error: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("expected non-empty body")
	}
}

func TestFetchIndexHTTPErrorIsFetchError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchIndex(context.Background(), srv.Client(), srv.URL+"/")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", fe.Status)
	}
}

func TestFetchIndexUnreachableIsConnectionError(t *testing.T) {
	t.Parallel()
	// Closed server: the dial must fail.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/"
	srv.Close()

	_, err := FetchIndex(context.Background(), http.DefaultClient, url)
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConnectionError, got %T: %v", err, err)
	}
}

func TestExtractLinksValidationOrder(t *testing.T) {
	t.Parallel()
	base := "http://device.local/"
	body := []byte(`<html><body>
		<a href="results_1.csv">one</a>
		<a href="results_1.csv">duplicate</a>
		<a href="http://device.local/results_2.csv">absolute</a>
		<a href="http://elsewhere.example/leak.csv">offsite</a>
		<a href="readme.txt">not csv</a>
		<a href="NetMonitor_Event_Summary.csv">excluded</a>
		<a>no href</a>
	</body></html>`)

	excluded := func(name string) bool { return name == "NetMonitor_Event_Summary.csv" }
	links, err := ExtractLinks(body, base, excluded, zap.NewNop())
	if err != nil {
		t.Fatalf("ExtractLinks error: %v", err)
	}

	want := []string{
		"http://device.local/results_1.csv",
		"http://device.local/results_2.csv",
	}
	if len(links) != len(want) {
		t.Fatalf("links = %v, want %v", links, want)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q (discovery order)", i, links[i], want[i])
		}
	}
}

func TestExtractLinksBadBaseURLIsFetchError(t *testing.T) {
	t.Parallel()
	_, err := ExtractLinks([]byte("<html></html>"), "http://[::1/", nil, zap.NewNop())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
}

func TestDownloadFileParsesAndTags(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Date,Time,Target1\n2024/03/01,14:30:00,host-a\n"))
	}))
	defer srv.Close()

	fd, err := DownloadFile(context.Background(), srv.Client(), srv.URL+"/results.csv", zap.NewNop())
	if err != nil {
		t.Fatalf("DownloadFile error: %v", err)
	}
	if fd.Name != "results.csv" {
		t.Errorf("Name = %q, want results.csv", fd.Name)
	}
	if len(fd.Rows) != 1 || fd.Rows[0][ColSourceFile] != "results.csv" {
		t.Errorf("rows not tagged with source file: %+v", fd.Rows)
	}
	if fd.Digest == 0 {
		t.Error("expected non-zero content digest")
	}
}

func TestDownloadFileToleratesContentType(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("Date,Target1\n2024/03/01,host-a\n"))
	}))
	defer srv.Close()

	fd, err := DownloadFile(context.Background(), srv.Client(), srv.URL+"/blob.csv", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected content type must not fail the download: %v", err)
	}
	if len(fd.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(fd.Rows))
	}
}

func TestDownloadFileEmptyBodyIsFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Date,Time,Target1\n"))
	}))
	defer srv.Close()

	_, err := DownloadFile(context.Background(), srv.Client(), srv.URL+"/empty.csv", zap.NewNop())
	if !errors.Is(err, ErrEmptyCSV) {
		t.Fatalf("expected ErrEmptyCSV, got %v", err)
	}
}
