// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// fetchURL is the shared GET-and-return-body helper every HTML-index
// adapter in this package uses (HwrfHafs, WPC, NHC). GFS, NAM, and GEFS
// instead read their data straight off S3 — see bigdata.go.
func fetchURL(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sources: building fetch request for %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sources: fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("sources: fetch %s returned %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// lastPathSegment returns the final, non-empty "/"-delimited segment of
// a URL or path.
func lastPathSegment(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	return p[i+1:]
}

// trimTrailingSlash strips any trailing "/" characters, used when
// composing a child URL against a directory href that already resolved
// with its own trailing slash.
func trimTrailingSlash(p string) string {
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
