package batch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// maxResultSize caps the transcript document download
const maxResultSize = 64 << 20

// HTTPFetcher downloads transcript documents from their presigned URI
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 60 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid transcript uri: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download transcript: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return body, nil
}

var _ repositories.ResultFetcher = (*HTTPFetcher)(nil)
