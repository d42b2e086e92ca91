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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mio-tools/miofetch/internal/util"
)

// FileData is one successfully downloaded and parsed export file.
type FileData struct {
	URL     string
	Name    string
	Columns []string
	Rows    []Row
	// Digest is an xxh3 hash of the raw body, logged at debug to spot
	// the device serving byte-identical exports under different names.
	Digest uint64
}

// FetchIndex issues the single request for the device's index page and
// returns its body. This is the one fetch that aborts the whole run on
// failure: without the index there is nothing to download.
func FetchIndex(ctx context.Context, httpc *http.Client, baseURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, &FetchError{URL: baseURL, Err: err}
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, ClassifyRequestError(baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: baseURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: baseURL, Err: fmt.Errorf("reading index body: %w", err)}
	}
	return body, nil
}

// ExtractLinks parses the index page, resolves relative hrefs against
// the base URL, and returns the links that pass validation in
// discovery order. Only exact duplicate URLs are collapsed. Failures
// here mean the index itself is unusable and fail the run like a bad
// index fetch would.
func ExtractLinks(body []byte, baseURL string, isExcluded func(string) bool, lg *zap.Logger) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &FetchError{URL: baseURL, Err: fmt.Errorf("parsing base URL: %w", err)}
	}

	var links []string
	seen := make(map[string]bool)

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: baseURL, Err: fmt.Errorf("parsing index page: %w", err)}
	}

	process := func(node *html.Node) {
		if node.Type != html.ElementNode || node.Data != "a" {
			return
		}
		href := ""
		for _, attr := range node.Attr {
			if attr.Key == "href" {
				href = attr.Val
				break
			}
		}
		if href == "" {
			return
		}

		resolved := href
		if !strings.HasPrefix(href, "http") {
			ref, err := url.Parse(href)
			if err != nil {
				lg.Warn("skipping unparsable href", zap.String("href", href))
				return
			}
			resolved = base.ResolveReference(ref).String()
		}

		if !ValidateLink(resolved, baseURL, isExcluded, lg) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	}
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		process(node)
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		visit(child)
	}

	return links, nil
}

// ValidateLink applies the per-link checks in order, short-circuiting
// on the first failure: same-origin containment, the .csv extension,
// and the exclusion list.
func ValidateLink(link, baseURL string, isExcluded func(string) bool, lg *zap.Logger) bool {
	if !strings.HasPrefix(link, baseURL) {
		lg.Warn("URL not from expected device", zap.String("url", link))
		return false
	}
	if !strings.HasSuffix(link, ".csv") {
		lg.Warn("URL is not a CSV file", zap.String("url", link))
		return false
	}
	fileName := util.FileNameFromURL(link)
	if isExcluded != nil && isExcluded(fileName) {
		lg.Info("skipping excluded file", zap.String("file", fileName))
		return false
	}
	return true
}

// DownloadFile retrieves and parses one CSV export. Errors here are
// per-file and non-fatal: the caller logs and drops the file. An
// unexpected content type is only a warning since the device labels
// its exports inconsistently.
func DownloadFile(ctx context.Context, httpc *http.Client, fileURL string, lg *zap.Logger) (*FileData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, &FetchError{URL: fileURL, Err: err}
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, ClassifyRequestError(fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: fileURL, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/csv") && !strings.Contains(contentType, "text/plain") {
		lg.Warn("unexpected content type",
			zap.String("url", fileURL),
			zap.String("content_type", contentType))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: fileURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	name := util.FileNameFromURL(fileURL)
	rows, columns, err := ParseCSV(bytes.NewReader(body), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", fileURL, err)
	}

	fd := &FileData{
		URL:     fileURL,
		Name:    name,
		Columns: columns,
		Rows:    rows,
		Digest:  xxh3.Hash(body),
	}
	lg.Debug("downloaded file",
		zap.String("url", fileURL),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(columns)),
		zap.Uint64("digest", fd.Digest))
	return fd, nil
}
