// Package server exposes a selection session and the layer list over HTTP
// for a browser map shell.
package server

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/eak1mov/go-tilemark/grid"
	"github.com/eak1mov/go-tilemark/layer"
	"github.com/eak1mov/go-tilemark/mb"
	"github.com/eak1mov/go-tilemark/session"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
)

const maxImportSize = 64 << 20

// Server serializes all requests touching the session: handlers run one at
// a time, like event callbacks of a single map widget.
type Server struct {
	mu       sync.Mutex
	session  *session.Session
	layers   []layer.Descriptor
	files    []layer.Descriptor
	logger   *slog.Logger
	filename string
}

type config struct {
	Layers   []layer.Descriptor
	Files    []layer.Descriptor
	Logger   *slog.Logger
	Filename string
}

type Option func(*config)

func WithLayers(layers []layer.Descriptor) Option {
	return func(c *config) { c.Layers = layers }
}

// WithFiles sets the file layers, as returned by layer.LoadFiles. Their tiles
// are served under /tiles.
func WithFiles(files []layer.Descriptor) Option {
	return func(c *config) { c.Files = files }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithExportFilename sets the download name of exported lists, "tiles" by default.
func WithExportFilename(filename string) Option {
	return func(c *config) { c.Filename = filename }
}

func New(s *session.Session, opts ...Option) *Server {
	config := config{
		Layers:   make([]layer.Descriptor, 0),
		Files:    make([]layer.Descriptor, 0),
		Logger:   slog.New(slog.DiscardHandler),
		Filename: "tiles",
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Server{
		session:  s,
		layers:   config.Layers,
		files:    config.Files,
		logger:   config.Logger,
		filename: config.Filename,
	}
}

// SetLayers replaces the served layer list.
func (s *Server) SetLayers(layers []layer.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = layers
}

// SetFiles replaces the file layers.
func (s *Server) SetFiles(files []layer.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/layers", s.handleLayers)
	r.Get("/tiles/{key}/{z}/{x}/{y}", s.handleTile)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.handleStatus)
		r.Post("/click", s.handleClick)
		r.Post("/toggle/{z}/{x}/{y}", s.handleToggle)
		r.Post("/copyup", s.handleCopyUp)
		r.Post("/clear", s.handleClear)
		r.Post("/clear_zoom", s.handleClearZoom)
		r.Get("/cell/{z}/{x}/{y}", s.handleCell)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})

	return r
}

type clickRequest struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

type zoomRequest struct {
	Zoom int `json:"zoom"`
}

type toggleResponse struct {
	Address  tile.ID `json:"address"`
	Selected bool    `json:"selected"`
	Count    int     `json:"count"`
}

type changeResponse struct {
	Changed int `json:"changed"`
	Count   int `json:"count"`
}

type statusResponse struct {
	Count    int            `json:"count"`
	Levels   map[uint32]int `json:"levels"`
	Delta    int            `json:"delta"`
	TileSize int            `json:"tile_size"`
	CellSize int            `json:"cell_size"`
}

type cellResponse struct {
	Address  tile.ID    `json:"address"`
	Label    string     `json:"label"`
	Selected bool       `json:"selected"`
	Bounds   [4]float64 `json:"bounds"` // west, south, east, north
	Pixels   [4]float64 `json:"pixels"` // left, top, right, bottom at display zoom
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("tilemark: error writing response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, grid.ErrOutsideWorld),
		errors.Is(err, grid.ErrInvalidZoom),
		errors.Is(err, tile.ErrInvalidFormat),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	default:
		s.logger.Error("tilemark: request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("tilemark: bad request")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func urlCell(r *http.Request) (z, x, y int, err error) {
	values := [3]int{}
	for i, name := range []string{"z", "x", "y"} {
		values[i], err = strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: invalid %s value", errBadRequest, name)
		}
	}
	return values[0], values[1], values[2], nil
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	layers := make([]layer.Descriptor, 0, len(s.layers)+len(s.files))
	layers = append(append(layers, s.layers...), s.files...)
	s.mu.Unlock()
	slices.SortStableFunc(layers, func(a, b layer.Descriptor) int {
		return cmp.Compare(a.Name, b.Name)
	})
	s.writeJSON(w, http.StatusOK, layers)
}

func (s *Server) findFile(key string) (layer.Descriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layer.Find(s.files, key)
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, x, y, err := urlCell(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tileID := tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
	if z < 0 || x < 0 || y < 0 || !tileID.Valid() {
		s.writeError(w, fmt.Errorf("%w: %d/%d/%d", tile.ErrInvalidFormat, z, x, y))
		return
	}

	d, ok := s.findFile(chi.URLParam(r, "key"))
	if !ok || z < d.MinZoom || z > d.MaxZoom {
		http.NotFound(w, r)
		return
	}

	reader, err := mb.NewReader(d.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer reader.Close()

	tileData, err := reader.ReadTile(tileID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(tileData) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", layer.ContentType(d.TileType))
	w.Write(tileData)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapper := s.session.Mapper()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Count:    s.session.Count(),
		Levels:   s.session.LevelCounts(),
		Delta:    mapper.Delta,
		TileSize: mapper.BaseTileSize,
		CellSize: mapper.CellSize(),
	})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, selected, err := s.session.HandleClick(session.ClickEvent{
		Point: orb.Point{req.Lon, req.Lat},
		Zoom:  req.Zoom,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toggleResponse{Address: id, Selected: selected, Count: s.session.Count()})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	z, x, y, err := urlCell(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.session.Mapper().GridCellKey(z, x, y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	selected, err := s.session.HandleToggle(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toggleResponse{Address: id, Selected: selected, Count: s.session.Count()})
}

func (s *Server) handleCopyUp(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.session.HandleCopyUp(req.Zoom)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, changeResponse{Changed: added, Count: s.session.Count()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.session.HandleClear()
	s.writeJSON(w, http.StatusOK, changeResponse{Changed: removed, Count: s.session.Count()})
}

func (s *Server) handleClearZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.session.HandleClearZoom(req.Zoom)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, changeResponse{Changed: removed, Count: s.session.Count()})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	z, x, y, err := urlCell(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	hint, err := s.session.RenderCell(z, x, y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	mapper := s.session.Mapper()
	bound := mapper.CellBounds(hint.Address)
	topLeft, bottomRight := mapper.CellPixelBounds(hint.Address)
	s.writeJSON(w, http.StatusOK, cellResponse{
		Address:  hint.Address,
		Label:    hint.Label,
		Selected: hint.Selected,
		Bounds:   [4]float64{bound.Left(), bound.Bottom(), bound.Right(), bound.Top()},
		Pixels:   [4]float64{topLeft.X, topLeft.Y, bottomRight.X, bottomRight.Y},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.filename+".txt"))
	if err := s.session.Export(w); err != nil {
		s.logger.Error("tilemark: export failed", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.session.HandleImport(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, changeResponse{Changed: added, Count: s.session.Count()})
}
