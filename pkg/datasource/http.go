package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/httpclient"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// HTTPSource serves market and user data from a JSON backend over the
// retrying HTTP client.
type HTTPSource struct {
	baseURL string
	client  *httpclient.Client
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, opts ...httpclient.Option) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.New(opts...),
	}
}

var _ MarketData = (*HTTPSource)(nil)
var _ UserData = (*HTTPSource)(nil)

func (s *HTTPSource) Indices(ctx context.Context, names []string) (map[string]market.IndexData, error) {
	query := url.Values{"names": {strings.Join(names, ",")}}
	var out map[string]market.IndexData
	if err := s.getJSON(ctx, "/indices", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) News(ctx context.Context, window time.Duration, limit int) ([]market.NewsItem, error) {
	query := url.Values{
		"window_hours": {strconv.Itoa(int(window.Hours()))},
		"limit":        {strconv.Itoa(limit)},
	}
	var out []market.NewsItem
	if err := s.getJSON(ctx, "/news", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) StockNews(ctx context.Context, ticker string, limit int) ([]market.NewsItem, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var out []market.NewsItem
	if err := s.getJSON(ctx, "/stocks/"+url.PathEscape(ticker)+"/news", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) Watchlist(ctx context.Context, userID string) ([]string, error) {
	var out []string
	if err := s.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/watchlist", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) Portfolio(ctx context.Context, userID string) ([]market.PortfolioHolding, error) {
	var out []market.PortfolioHolding
	if err := s.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) Preferences(ctx context.Context, userID string) (map[string]any, error) {
	var out map[string]any
	if err := s.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/preferences", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &agent.DataFetchError{Source: u, Message: "building request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &agent.DataFetchError{Source: u, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &agent.DataFetchError{
			Source:  u,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &agent.DataFetchError{Source: u, Message: "decoding response", Err: err}
	}
	return nil
}
