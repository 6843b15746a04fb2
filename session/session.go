// Package session ties the selection set to map interaction events.
//
// A Session is the only owner of the selection state. The integration shell
// registers its handlers once and calls them from its event loop; handlers
// must not run concurrently. RenderCell and Count never mutate the session,
// so the grid renderer may call them any number of times in any order.
package session

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/eak1mov/go-tilemark/grid"
	"github.com/eak1mov/go-tilemark/selection"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/paulmach/orb"
)

type EventKind string

const (
	EventToggle    EventKind = "toggle"
	EventCopyUp    EventKind = "copy_up"
	EventClear     EventKind = "clear"
	EventClearZoom EventKind = "clear_zoom"
	EventImport    EventKind = "import"
)

// Event describes a completed mutation. The shell redraws the grid on every
// event and shows Count in its counter.
type Event struct {
	Kind    EventKind
	Count   int
	Changed int
}

// ClickEvent is a click on the map at the current display zoom.
type ClickEvent struct {
	Point orb.Point // lon, lat
	Zoom  int
}

// CellHint tells the grid renderer how to draw one cell.
type CellHint struct {
	Address  tile.ID
	Label    string
	Selected bool
}

type Session struct {
	mapper    grid.Mapper
	projector grid.Projector
	logger    *slog.Logger
	listener  func(Event)
	selected  *selection.Set
}

type config struct {
	Mapper    grid.Mapper
	Projector grid.Projector
	Logger    *slog.Logger
	Listener  func(Event)
}

type Option func(*config)

func WithDelta(delta int) Option {
	return func(c *config) { c.Mapper.Delta = delta }
}

func WithBaseTileSize(size int) Option {
	return func(c *config) { c.Mapper.BaseTileSize = size }
}

// WithProjector replaces the default web mercator projection with the map
// widget's own.
func WithProjector(projector grid.Projector) Option {
	return func(c *config) { c.Projector = projector }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithChangeListener registers the callback that receives an Event after
// every mutation.
func WithChangeListener(listener func(Event)) Option {
	return func(c *config) { c.Listener = listener }
}

// New creates a session with an empty selection.
func New(opts ...Option) (*Session, error) {
	config := config{
		Mapper: grid.NewMapper(),
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	if err := config.Mapper.Validate(); err != nil {
		return nil, err
	}
	if config.Projector == nil {
		config.Projector = grid.WebMercator{TileSize: config.Mapper.BaseTileSize}
	}
	if config.Listener == nil {
		config.Listener = func(Event) {}
	}

	return &Session{
		mapper:    config.Mapper,
		projector: config.Projector,
		logger:    config.Logger,
		listener:  config.Listener,
		selected:  selection.New(),
	}, nil
}

func (s *Session) Mapper() grid.Mapper {
	return s.mapper
}

func (s *Session) Count() int {
	return s.selected.Len()
}

func (s *Session) Contains(id tile.ID) bool {
	return s.selected.Contains(id)
}

func (s *Session) notify(kind EventKind, changed int) {
	event := Event{Kind: kind, Count: s.selected.Len(), Changed: changed}
	s.logger.Debug("tilemark: selection changed", "kind", kind, "changed", changed, "count", event.Count)
	s.listener(event)
}

// HandleClick toggles the selection cell under the clicked point.
func (s *Session) HandleClick(e ClickEvent) (tile.ID, bool, error) {
	id, err := s.mapper.ClickToAddress(s.projector, e.Point, e.Zoom)
	if err != nil {
		return tile.ID{}, false, err
	}
	selected := s.selected.Toggle(id)
	s.logger.Debug("tilemark: click", "address", id.String(), "selected", selected)
	s.notify(EventToggle, 1)
	return id, selected, nil
}

// HandleToggle toggles an address directly, e.g. a cell picked in the grid.
func (s *Session) HandleToggle(id tile.ID) (bool, error) {
	if !id.Valid() {
		return false, fmt.Errorf("%w: %v", tile.ErrInvalidFormat, id)
	}
	selected := s.selected.Toggle(id)
	s.notify(EventToggle, 1)
	return selected, nil
}

// HandleCopyUp subdivides the selection one level coarser than the current
// selection level into the current selection level.
func (s *Session) HandleCopyUp(displayZoom int) (int, error) {
	level, err := s.mapper.Level(displayZoom)
	if err != nil {
		return 0, err
	}
	if level == 0 {
		s.notify(EventCopyUp, 0)
		return 0, nil
	}
	added := s.selected.CopyUp(level - 1)
	s.notify(EventCopyUp, added)
	return added, nil
}

func (s *Session) HandleClear() int {
	removed := s.selected.Len()
	s.selected.Clear()
	s.notify(EventClear, removed)
	return removed
}

// HandleClearZoom removes the selection at the selection level of the given
// display zoom, leaving other levels untouched.
func (s *Session) HandleClearZoom(displayZoom int) (int, error) {
	level, err := s.mapper.Level(displayZoom)
	if err != nil {
		return 0, err
	}
	removed := s.selected.ClearLevel(level)
	s.notify(EventClearZoom, removed)
	return removed, nil
}

// HandleImport merges an exported list into the selection. A malformed list
// leaves the selection unchanged.
func (s *Session) HandleImport(reader io.Reader) (int, error) {
	imported, err := selection.ReadText(reader)
	if err != nil {
		return 0, err
	}
	added := 0
	for id := range imported.All() {
		added += s.selected.Add(id)
	}
	s.notify(EventImport, added)
	return added, nil
}

// RenderCell returns the drawing hint for a display grid cell (z, x, y) as
// supplied by the grid layer.
func (s *Session) RenderCell(z, x, y int) (CellHint, error) {
	id, err := s.mapper.GridCellKey(z, x, y)
	if err != nil {
		return CellHint{}, err
	}
	return CellHint{
		Address:  id,
		Label:    s.mapper.CellLabel(id),
		Selected: s.selected.Contains(id),
	}, nil
}

// LevelCounts returns the number of selected addresses per level.
func (s *Session) LevelCounts() map[uint32]int {
	counts := make(map[uint32]int)
	for _, level := range s.selected.Levels() {
		counts[level] = s.selected.CountLevel(level)
	}
	return counts
}

// Export writes the selection as newline separated addresses.
func (s *Session) Export(writer io.Writer) error {
	return s.selected.WriteText(writer)
}

// Snapshot returns a copy of the current selection.
func (s *Session) Snapshot() *selection.Set {
	return s.selected.Clone()
}
