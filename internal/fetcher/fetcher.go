package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"datasync/internal/models"
	"datasync/internal/providers"
	"datasync/internal/structures"
	json "github.com/goccy/go-json"
)

const defaultMaxBodyBytes = 32 << 20

type FetcherInterface interface {
	FetchAll(ctx context.Context, endpoint string) []models.Record
}

// PaginatedFetcher walks an endpoint page by page until the API returns an
// empty page. Failures never propagate: they end the walk and whatever was
// collected so far is returned.
type PaginatedFetcher struct {
	client    *http.Client
	baseURL   string
	pageSize  int
	userAgent string
	maxBody   int64
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

type page struct {
	Items []models.Record `json:"items"`
}

func NewPaginatedFetcher(conf *structures.Config, client *http.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) FetcherInterface {
	maxBody := conf.Api.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	f := &PaginatedFetcher{
		client:    client,
		baseURL:   strings.TrimRight(conf.Api.BaseUrl, "/"),
		pageSize:  conf.Api.PageSize,
		userAgent: conf.Api.UserAgent,
		maxBody:   maxBody,
		logger:    logger,
		metrics:   metrics,
	}
	logger.Infof(providers.TypeFetch, "Initialized fetcher with base URL: %s, page size: %d", f.baseURL, f.pageSize)
	return f
}

func (f *PaginatedFetcher) FetchAll(ctx context.Context, endpoint string) []models.Record {
	all := make([]models.Record, 0)

	for p := 1; ; p++ {
		items, err := f.fetchPage(ctx, endpoint, p)
		if err != nil {
			f.logFailure(endpoint, err)
			break
		}
		if len(items) == 0 {
			f.logger.Debugf(providers.TypeFetch, "Empty page %d from %s, stopping", p, endpoint)
			break
		}
		f.metrics.IncPagesFetched(endpoint)
		all = append(all, items...)
	}

	f.logger.Infof(providers.TypeFetch, "Total of %d items fetched from %s", len(all), endpoint)
	return all
}

func (f *PaginatedFetcher) PageURL(endpoint string, p int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p))
	q.Set("size", strconv.Itoa(f.pageSize))
	return f.baseURL + "/" + strings.TrimLeft(endpoint, "/") + "?" + q.Encode()
}

func (f *PaginatedFetcher) fetchPage(ctx context.Context, endpoint string, p int) ([]models.Record, error) {
	u := f.PageURL(endpoint, p)
	start := time.Now()
	defer func() {
		f.metrics.ObservePageDuration(endpoint, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s (page %d): %w", u, p, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: u, Page: p, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ResponseError{URL: u, Page: p, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &TransportError{URL: u, Page: p, Err: err}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &ResponseError{URL: u, Page: p, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.maxBody)}
	}

	var data page
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, &ResponseError{URL: u, Page: p, StatusCode: resp.StatusCode, Err: err}
	}

	items := make([]models.Record, 0, len(data.Items))
	for _, item := range data.Items {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *PaginatedFetcher) logFailure(endpoint string, err error) {
	class := Classify(err)
	f.metrics.IncFetchErrors(endpoint, class)

	switch class {
	case ClassTransport:
		f.logger.Errorf(providers.TypeFetch, "Connection error occurred: %s", err)
	case ClassTimeout:
		f.logger.Errorf(providers.TypeFetch, "Timeout occurred: %s", err)
	case ClassStatus:
		f.logger.Errorf(providers.TypeFetch, "HTTP error occurred: %s", err)
	case ClassPayload:
		f.logger.Errorf(providers.TypeFetch, "Payload error occurred: %s", err)
	case ClassTooLarge:
		f.logger.Errorf(providers.TypeFetch, "Response too large: %s", err)
	case ClassCancelled:
		f.logger.Warnf(providers.TypeFetch, "Fetch of %s cancelled: %s", endpoint, err)
	default:
		f.logger.Errorf(providers.TypeFetch, "Unexpected error occurred while fetching %s: %s", endpoint, err)
	}
}
