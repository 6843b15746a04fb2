// Package internal holds test helpers shared between packages.
package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eak1mov/go-tilemark/tile"
)

// TileServer serves tiles at "/{z}/{x}/{y}.png" and answers 404 for the
// rest. It records the subdomain passed as the "s" query parameter.
type TileServer struct {
	*httptest.Server

	mu         sync.Mutex
	subdomains []string
}

func NewTileServer(t *testing.T, tiles map[tile.ID][]byte) *TileServer {
	t.Helper()

	ts := &TileServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.subdomains = append(ts.subdomains, r.URL.Query().Get("s"))
		ts.mu.Unlock()

		tileID, err := tile.Parse(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".png"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tileData, ok := tiles[tileID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(tileData)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// Template returns the tile URL template of the server.
func (ts *TileServer) Template() string {
	return ts.URL + "/{z}/{x}/{y}.png?s={s}"
}

// Subdomains returns the subdomains of all requests so far, in order.
func (ts *TileServer) Subdomains() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.subdomains...)
}
