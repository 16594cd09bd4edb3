// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPIndex_ListMatchesAnchors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<a href="gfs.20240101/">gfs.20240101/</a>
			<a href="gfs.20240102/">gfs.20240102/</a>
			<a href="../">Parent Directory</a>
		</body></html>`))
	}))
	defer srv.Close()

	idx := newHTTPIndex(srv.Client())
	pattern := regexp.MustCompile(`^gfs\.\d{8}$`)
	got, err := idx.list(context.Background(), srv.URL+"/", pattern)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Contains(t, got[0], "gfs.20240101")
	require.Contains(t, got[1], "gfs.20240102")
}

func TestHTTPIndex_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	idx := newHTTPIndex(srv.Client())
	_, err := idx.list(context.Background(), srv.URL+"/", regexp.MustCompile(`.*`))
	require.Error(t, err)
}

func TestNamedGroups(t *testing.T) {
	p := regexp.MustCompile(`^(?P<year>\d{4})(?P<month>\d{2})$`)
	m := p.FindStringSubmatch("202408")
	require.NotNil(t, m)
	groups := namedGroups(p, m)
	require.Equal(t, "2024", groups["year"])
	require.Equal(t, "08", groups["month"])
}

func TestLastPathSegment(t *testing.T) {
	require.Equal(t, "gfs.20240101", lastPathSegment("https://example.com/pub/gfs.20240101/"))
	require.Equal(t, "file.grb2", lastPathSegment("file.grb2"))
}
