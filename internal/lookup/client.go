// Package lookup resolves classification entries against the external
// terminology service (an ICD-11-style REST API behind OAuth2 client
// credentials).
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/traditional-medicine/mapcurator/internal/core"
)

// Config holds the lookup service settings.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Client implements core.EntryResolver over the terminology API.
// Tokens are fetched and refreshed by the oauth2 transport.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a resolver. The returned client is safe for
// concurrent use.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	httpClient := cc.Client(context.Background())
	httpClient.Timeout = timeout

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
	}
}

// searchResponse mirrors the service's search payload.
type searchResponse struct {
	Entities []struct {
		ID    string  `json:"id"`
		Title string  `json:"title"`
		Score float64 `json:"score"`
	} `json:"destinationEntities"`
}

// detailResponse mirrors the service's entity payload.
type detailResponse struct {
	Title struct {
		Value string `json:"@value"`
	} `json:"title"`
	Definition struct {
		Value string `json:"@value"`
	} `json:"definition"`
	Code string `json:"code"`
}

// Search returns candidate entries for a name, best match first.
func (c *Client) Search(ctx context.Context, name string) ([]core.EntryCandidate, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(name))

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	candidates := make([]core.EntryCandidate, 0, len(payload.Entities))
	for _, e := range payload.Entities {
		candidates = append(candidates, core.EntryCandidate{
			ID:    e.ID,
			Title: e.Title,
			Score: e.Score,
		})
	}
	return candidates, nil
}

// FetchDetails returns the full record for one candidate ID.
func (c *Client) FetchDetails(ctx context.Context, id string) (core.EntryDetails, error) {
	endpoint := fmt.Sprintf("%s/entity/%s", c.baseURL, url.PathEscape(id))

	var payload detailResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return core.EntryDetails{}, err
	}

	return core.EntryDetails{
		Title:       payload.Title.Value,
		Description: payload.Definition.Value,
		Code:        payload.Code,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lookup request: %w: %w", core.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("lookup %s: %w", endpoint, core.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lookup %s: status %d %s: %w", endpoint, resp.StatusCode, body, core.ErrDependencyUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lookup response: %w", err)
	}
	return nil
}
