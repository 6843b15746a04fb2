package session_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eak1mov/go-tilemark/grid"
	"github.com/eak1mov/go-tilemark/session"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func fixedProjector(x, y float64) grid.Projector {
	return grid.ProjectorFunc(func(orb.Point, int) grid.PixelPoint {
		return grid.PixelPoint{X: x, Y: y}
	})
}

func TestNewErrors(t *testing.T) {
	_, err := session.New(session.WithDelta(-1))
	require.ErrorIs(t, err, grid.ErrInvalidMapper)

	_, err = session.New(session.WithBaseTileSize(100))
	require.ErrorIs(t, err, grid.ErrInvalidMapper)
}

func TestHandleClick(t *testing.T) {
	var events []session.Event
	s, err := session.New(
		session.WithProjector(fixedProjector(1200, 800)),
		session.WithChangeListener(func(e session.Event) { events = append(events, e) }),
	)
	require.NoError(t, err)

	id, selected, err := s.HandleClick(session.ClickEvent{Zoom: 10})
	require.NoError(t, err)
	require.Equal(t, tile.ID{X: 37, Y: 25, Z: 13}, id)
	require.True(t, selected)
	require.True(t, s.Contains(id))
	require.Equal(t, 1, s.Count())

	_, selected, err = s.HandleClick(session.ClickEvent{Zoom: 10})
	require.NoError(t, err)
	require.False(t, selected)
	require.Zero(t, s.Count())

	want := []session.Event{
		{Kind: session.EventToggle, Count: 1, Changed: 1},
		{Kind: session.EventToggle, Count: 0, Changed: 1},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want+got):\n%v", diff)
	}
}

func TestHandleClickErrors(t *testing.T) {
	var events []session.Event
	s, err := session.New(
		session.WithProjector(fixedProjector(10, -1)),
		session.WithChangeListener(func(e session.Event) { events = append(events, e) }),
	)
	require.NoError(t, err)

	_, _, err = s.HandleClick(session.ClickEvent{Zoom: 2})
	require.ErrorIs(t, err, grid.ErrOutsideWorld)
	require.Empty(t, events)
}

func TestWebMercatorClick(t *testing.T) {
	s, err := session.New()
	require.NoError(t, err)

	id, _, err := s.HandleClick(session.ClickEvent{Point: orb.Point{30.8, 60}, Zoom: 10})
	require.NoError(t, err)
	require.Equal(t, tile.ID{X: 4796, Y: 2378, Z: 13}, id)
}

func TestHandleCopyUp(t *testing.T) {
	s, err := session.New(session.WithDelta(2))
	require.NoError(t, err)

	_, err = s.HandleToggle(tile.ID{X: 3, Y: 7, Z: 5})
	require.NoError(t, err)

	// selection level 4+2 = 6, source level 5
	added, err := s.HandleCopyUp(4)
	require.NoError(t, err)
	require.Equal(t, 4, added)

	for _, id := range []tile.ID{
		{X: 6, Y: 14, Z: 6},
		{X: 7, Y: 14, Z: 6},
		{X: 6, Y: 15, Z: 6},
		{X: 7, Y: 15, Z: 6},
	} {
		require.True(t, s.Contains(id), "%v not selected", id)
	}
	require.Equal(t, 5, s.Count())

	added, err = s.HandleCopyUp(4)
	require.NoError(t, err)
	require.Zero(t, added)
	require.Equal(t, 5, s.Count())
	require.Equal(t, map[uint32]int{5: 1, 6: 4}, s.LevelCounts())
}

func TestHandleCopyUpLevelZero(t *testing.T) {
	s, err := session.New(session.WithDelta(0))
	require.NoError(t, err)
	added, err := s.HandleCopyUp(0)
	require.NoError(t, err)
	require.Zero(t, added)
}

func TestHandleClearZoom(t *testing.T) {
	s, err := session.New()
	require.NoError(t, err)

	for _, id := range []tile.ID{
		{X: 1, Y: 1, Z: 13},
		{X: 2, Y: 1, Z: 13},
		{X: 1, Y: 1, Z: 12},
	} {
		_, err := s.HandleToggle(id)
		require.NoError(t, err)
	}

	removed, err := s.HandleClearZoom(10)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Equal(t, 1, s.Count())
	require.True(t, s.Contains(tile.ID{X: 1, Y: 1, Z: 12}))

	require.Equal(t, 1, s.HandleClear())
	require.Zero(t, s.Count())
}

func TestHandleToggleInvalid(t *testing.T) {
	s, err := session.New()
	require.NoError(t, err)
	_, err = s.HandleToggle(tile.ID{X: 4, Y: 0, Z: 2})
	require.ErrorIs(t, err, tile.ErrInvalidFormat)
	require.Zero(t, s.Count())
}

func TestRenderCell(t *testing.T) {
	s, err := session.New()
	require.NoError(t, err)
	_, err = s.HandleToggle(tile.ID{X: 37, Y: 25, Z: 13})
	require.NoError(t, err)

	hint, err := s.RenderCell(10, 37, 25)
	require.NoError(t, err)
	require.Equal(t, session.CellHint{Address: tile.ID{X: 37, Y: 25, Z: 13}, Label: "13/37/25", Selected: true}, hint)

	hint, err = s.RenderCell(10, 38, 25)
	require.NoError(t, err)
	require.False(t, hint.Selected)

	before := s.Snapshot()
	for range 3 {
		_, _ = s.RenderCell(10, 37, 25)
	}
	require.Equal(t, before.Sorted(), s.Snapshot().Sorted())
}

func TestExportImport(t *testing.T) {
	s, err := session.New()
	require.NoError(t, err)
	for _, id := range []tile.ID{{X: 37, Y: 25, Z: 13}, {X: 3, Y: 7, Z: 5}} {
		_, err := s.HandleToggle(id)
		require.NoError(t, err)
	}

	var exported bytes.Buffer
	require.NoError(t, s.Export(&exported))
	require.Equal(t, "5/3/7\n13/37/25", exported.String())

	fresh, err := session.New()
	require.NoError(t, err)
	added, err := fresh.HandleImport(&exported)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, s.Snapshot().Sorted(), fresh.Snapshot().Sorted())

	_, err = fresh.HandleImport(strings.NewReader("1/0/0\nbogus"))
	require.ErrorIs(t, err, tile.ErrInvalidFormat)
	require.Equal(t, 2, fresh.Count())
}
