package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxTelegramSize bounds a response body; real telegrams are a few KiB.
const maxTelegramSize = 64 << 10

// HTTPSource fetches a telegram from a P1 gateway exposing it over HTTP.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSource(endpoint string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: s.endpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTelegramSize))
	if err != nil {
		return nil, &FetchError{Source: s.endpoint, Err: err}
	}
	return body, nil
}
