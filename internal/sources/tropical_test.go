// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thewaterinstitute/metget-server/internal/catalog"
)

func TestHWRF_Discover(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="hwrf.2024082500/">hwrf.2024082500/</a>`))
	})
	mux.HandleFunc("/hwrf.2024082500/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="09l/">09l/</a>`))
	})
	mux.HandleFunc("/hwrf.2024082500/09l/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="hwrf.storm.t00z.hwrfprs.storm.0p015.f006.grb2">f006</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewHWRF(srv.Client())
	h.root = srv.URL + "/"

	got, err := h.Discover(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "al", got[0].Basin)
	require.Equal(t, 9, got[0].StormNumber)
	require.Equal(t, 2024, got[0].StormYear)
	require.Equal(t, 6, got[0].Tau)
	require.Equal(t, catalog.FamilyTropicalDeterministic, h.Family())
}

func TestWPC_Discover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="p06m_2024082512f024.grb">p06m_2024082512f024.grb</a>`))
	}))
	defer srv.Close()

	w := NewWPC(srv.Client())
	w.root = srv.URL + "/"

	got, err := w.Discover(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 24, got[0].Tau)
	require.Equal(t, catalog.FamilyPrecipitation, w.Family())
}

func TestNHC_Discover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="bal092024.dat">bal092024.dat</a>`))
	}))
	defer srv.Close()

	n := NewNHC(srv.Client())
	n.root = srv.URL + "/"

	got, err := n.Discover(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "al", got[0].Basin)
	require.Equal(t, 9, got[0].StormNumber)
	require.Equal(t, 2024, got[0].StormYear)
	require.Equal(t, catalog.FamilyTropicalAnalysis, n.Family())
}
