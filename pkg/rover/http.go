package rover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/pkg/command"
)

// maxBody caps how much of a response body is read. The firmware answers
// with a short status line.
const maxBody = 4 << 10

// Response is a successful device answer.
type Response struct {
	URL        string
	StatusCode int
	Body       string
	Latency    time.Duration
}

// HTTPClient implements Device over plain HTTP GET.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a device client. A nil client uses
// httpc.NewClient with its default timeout.
func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = httpc.NewClient(0)
	}
	return &HTTPClient{client: client}
}

// Send issues GET <base><cmd.RequestPath()>.
func (c *HTTPClient) Send(ctx context.Context, base string, cmd command.Command) (Response, error) {
	return c.get(ctx, cmd.URL(base))
}

// Ping issues GET <base>.
func (c *HTTPClient) Ping(ctx context.Context, base string) (Response, error) {
	return c.get(ctx, strings.TrimRight(base, "/"))
}

func (c *HTTPClient) get(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, &RequestError{URL: url, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, &RequestError{URL: url, Err: fmt.Errorf("%w: %v", ErrUnreachable, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	latency := time.Since(start)
	if err != nil {
		return Response{}, &RequestError{URL: url, Err: fmt.Errorf("%w: read body: %v", ErrUnreachable, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &RequestError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(data),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       string(data),
		Latency:    latency,
	}, nil
}
