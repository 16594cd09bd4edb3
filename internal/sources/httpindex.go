// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// httpIndex lists an HTTP directory listing (Apache/nginx autoindex
// style, which is what NOMADS serves under nomads.ncep.noaa.gov/pub/...)
// and returns the href of every anchor that matches pattern. pattern is
// expected to carry named subexpressions the caller pulls out with
// FindStringSubmatch; this mirrors how a directory of run folders or
// per-cycle files is walked in practice, since NOMADS names both runs
// and files by embedding the cycle directly in the path rather than
// exposing any structured index.
type httpIndex struct {
	client *http.Client
}

func newHTTPIndex(client *http.Client) *httpIndex {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpIndex{client: client}
}

// list fetches base and returns every anchor href matching pattern,
// resolved against base. Entries are returned in document order.
func (h *httpIndex) list(ctx context.Context, base string, pattern *regexp.Regexp) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return nil, fmt.Errorf("sources: building request for %s: %w", base, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sources: fetching index %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sources: index %s returned %s", base, resp.Status)
	}

	hrefs, err := extractHrefs(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sources: parsing index %s: %w", base, err)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("sources: parsing base url %s: %w", base, err)
	}

	var out []string
	for _, href := range hrefs {
		name := strings.TrimSuffix(href, "/")
		if !pattern.MatchString(name) {
			continue
		}
		resolved, err := baseURL.Parse(href)
		if err != nil {
			continue
		}
		out = append(out, resolved.String())
	}
	return out, nil
}

// extractHrefs walks the parsed HTML tree and collects every anchor's
// href attribute, the same walk-and-match shape used to scrape a NOMADS
// or THREDDS-style directory listing.
func extractHrefs(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs, nil
}

// namedGroups returns the named subexpression captures of m matched
// against pattern, keyed by group name.
func namedGroups(pattern *regexp.Regexp, m []string) map[string]string {
	out := map[string]string{}
	for i, name := range pattern.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		out[name] = m[i]
	}
	return out
}

// atoiOr0 parses s as a base-10 integer, returning 0 on failure. Used
// for optional named groups (e.g. a two-digit hour that may be absent
// from a coarser directory listing).
func atoiOr0(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
