package layer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/eak1mov/go-tilemark/tile"
	"github.com/eak1mov/go-tilemark/xyz"
)

const defaultUserAgent = "tilemark/1.0"

// Source implements tile.Reader interface for a remote layer. Requests
// rotate over the layer's subdomains.
type Source struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
	pattern   xyz.Pattern
	options   Options
	next      atomic.Uint64
}

type sourceConfig struct {
	Client    *http.Client
	Logger    *slog.Logger
	UserAgent string
}

type SourceOption func(*sourceConfig)

func WithHTTPClient(client *http.Client) SourceOption {
	return func(c *sourceConfig) { c.Client = client }
}

func WithLogger(logger *slog.Logger) SourceOption {
	return func(c *sourceConfig) { c.Logger = logger }
}

func WithUserAgent(userAgent string) SourceOption {
	return func(c *sourceConfig) { c.UserAgent = userAgent }
}

// NewSource creates a Source for the descriptor's URL template.
func NewSource(d Descriptor, opts ...SourceOption) (*Source, error) {
	config := sourceConfig{
		Client:    &http.Client{Timeout: 10 * time.Second},
		Logger:    slog.New(slog.DiscardHandler),
		UserAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&config)
	}

	options, err := d.Options()
	if err != nil {
		return nil, err
	}
	pattern, err := xyz.ParsePattern(d.URL)
	if err != nil {
		return nil, err
	}

	return &Source{
		client:    config.Client,
		logger:    config.Logger.With("layer", d.Name),
		userAgent: config.UserAgent,
		pattern:   pattern,
		options:   options,
	}, nil
}

// URL returns the request URL of a tile. Rows of tms layers are flipped.
func (s *Source) URL(tileID tile.ID) string {
	subdomain := ""
	if n := len(s.options.Subdomains); n > 0 {
		subdomain = s.options.Subdomains[(s.next.Add(1)-1)%uint64(n)]
	}
	if s.options.Tms {
		tileID.Y = (1 << tileID.Z) - 1 - tileID.Y
	}
	return s.pattern.Format(tileID, subdomain)
}

// Format returns the tile image format of the layer: its tile type when set,
// otherwise a guess from the URL template.
func (s *Source) Format() string {
	if s.options.TileType != "" {
		return s.options.TileType
	}
	return ImageFormat(s.pattern.String())
}

func (s *Source) ReadTile(tileID tile.ID) ([]byte, error) {
	return s.ReadTileContext(context.Background(), tileID)
}

// ReadTileContext downloads a single tile. Tiles outside of the layer's
// zoom range and tiles the server does not have are returned empty.
func (s *Source) ReadTileContext(ctx context.Context, tileID tile.ID) ([]byte, error) {
	if int(tileID.Z) < s.options.MinZoom || int(tileID.Z) > s.options.MaxZoom {
		return make([]byte, 0), nil
	}

	url := s.URL(tileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		s.logger.Debug("tilemark: miss", "tile", tileID.String())
		return make([]byte, 0), nil
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("tilemark: %s: %s", url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}
