package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marianfoo/bluesky-bots/models"

	log "github.com/sirupsen/logrus"
)

const npmSearchURL = "https://registry.npmjs.org/-/v1/search"

// NpmSearch polls the npm registry search API for packages matching a query
// and reports each (name, version) pair once.
type NpmSearch struct {
	client  *http.Client
	query   string
	size    int
	baseURL string
}

func NewNpmSearch(client *http.Client, query string, size int) *NpmSearch {
	return &NpmSearch{client: client, query: query, size: size, baseURL: npmSearchURL}
}

type npmSearchResponse struct {
	Objects []struct {
		Package struct {
			Name        string    `json:"name"`
			Version     string    `json:"version"`
			Description string    `json:"description"`
			Date        time.Time `json:"date"`
			Links       struct {
				Npm        string `json:"npm"`
				Homepage   string `json:"homepage"`
				Repository string `json:"repository"`
			} `json:"links"`
			Publisher struct {
				Username string `json:"username"`
			} `json:"publisher"`
		} `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}

func (s *NpmSearch) Fetch(ctx context.Context) ([]models.Item, error) {
	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}

	q := endpoint.Query()
	q.Set("text", s.query)
	q.Set("size", fmt.Sprintf("%d", s.size))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build npm search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("npm search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected npm search status: %s", resp.Status)
	}

	var result npmSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode npm search response: %w", err)
	}

	log.WithFields(log.Fields{
		"query": s.query,
		"total": result.Total,
		"page":  len(result.Objects),
	}).Debug("Fetched npm search results")

	var items []models.Item
	for _, object := range result.Objects {
		pkg := object.Package
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		if !withinHorizon(pkg.Date) {
			continue
		}

		link := pkg.Links.Npm
		if link == "" {
			link = "https://www.npmjs.com/package/" + pkg.Name
		}

		items = append(items, models.Item{
			Key:       pkg.Name + "@" + pkg.Version,
			Title:     pkg.Name + "@" + pkg.Version,
			Text:      pkg.Description,
			URL:       link,
			Author:    pkg.Publisher.Username,
			CreatedAt: pkg.Date,
		})
	}

	return items, nil
}
