// Package sources implements the per-bot item fetchers. Each source polls an
// external API and normalises the result into models.Item values with stable
// keys for deduplication.
package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/marianfoo/bluesky-bots/models"

	"github.com/hashicorp/go-retryablehttp"
)

// Source fetches the current items from an external feed. Fetch returns the
// full current window; the engine diffs it against the posted-items set.
type Source interface {
	Fetch(ctx context.Context) ([]models.Item, error)
}

// horizon is how far back discovered items may date. Anything older is
// ignored even when missing from the posted-items set, so a tidied store
// cannot cause ancient items to be re-posted.
const horizon = 7 * 24 * time.Hour

type uaTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewHTTPClient returns the retrying HTTP client shared by all sources.
func NewHTTPClient(userAgent string) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 15 * time.Second
	client.Logger = nil
	client.HTTPClient.Timeout = 30 * time.Second
	client.HTTPClient.Transport = &uaTransport{
		base:      http.DefaultTransport,
		userAgent: userAgent,
	}
	return client.StandardClient()
}

func withinHorizon(t time.Time) bool {
	return !t.Before(time.Now().Add(-horizon))
}
