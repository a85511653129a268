package resolver

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/tcfw/siop/internal/utils/logging"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxDocumentSize    = 1 << 20
)

var errRetryable = errors.New("retryable response")

// httpFetcher performs GETs against DID hosting endpoints. With attempts
// above 1, transient failures are retried with exponential backoff.
type httpFetcher struct {
	client   *http.Client
	attempts int
	backoff  *backoff.Backoff
}

func newHTTPFetcher(c *http.Client, retries int) *httpFetcher {
	if c == nil {
		c = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &httpFetcher{
		client:   c,
		attempts: retries + 1,
		backoff: &backoff.Backoff{
			Min:    100 * time.Millisecond,
			Max:    2 * time.Second,
			Factor: 2,
		},
	}
}

func (f *httpFetcher) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	b := *f.backoff

	var lastErr error

	for i := 0; i < f.attempts; i++ {
		body, err := f.do(ctx, url, header)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, errRetryable) {
			return nil, err
		}

		lastErr = err
		if i == f.attempts-1 {
			break
		}

		d := b.Duration()

		logging.Entry().WithField("url", url).WithField("wait", d).WithError(err).Debug("retrying did fetch")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}

	return nil, lastErr
}

func (f *httpFetcher) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errRetryable, err.Error())
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusGone:
		return nil, ErrDeactivated
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrapf(errRetryable, "status %d", resp.StatusCode)
	}

	return nil, errors.Errorf("unexpected status %d: %s", resp.StatusCode, body)
}
