package layer

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetch downloads and parses the layer list at url.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tilemark: fetch %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseList(data)
}
