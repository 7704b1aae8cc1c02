package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.airtable.com/v0"
	maxPageSize    = 100
	// MaxBatch is the per-request row limit for create and update calls.
	MaxBatch = 10
)

// Config holds connection details for one Airtable base.
type Config struct {
	APIKey            string
	BaseID            string
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client talks to the Airtable REST API for a single base. Requests are paced
// by a token bucket because the API rejects bursts above its per-base limit.
type Client struct {
	baseURL    string
	baseID     string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL:    baseURL,
		baseID:     cfg.BaseID,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:     logger.With().Str("component", "airtable").Logger(),
	}
}

// Query describes a filtered read.
type Query struct {
	Formula    Formula
	Fields     []string
	MaxRecords int
	PageSize   int
}

func (q Query) values(offset string) url.Values {
	v := url.Values{}
	if q.Formula != "" {
		v.Set("filterByFormula", string(q.Formula))
	}
	for _, f := range q.Fields {
		v.Add("fields[]", f)
	}
	if q.MaxRecords > 0 {
		v.Set("maxRecords", strconv.Itoa(q.MaxRecords))
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if q.MaxRecords > 0 && q.MaxRecords < pageSize {
		pageSize = q.MaxRecords
	}
	v.Set("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		v.Set("offset", offset)
	}
	return v
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// Select reads every matching row, following pagination until the result set
// or q.MaxRecords is exhausted.
func (c *Client) Select(ctx context.Context, table string, q Query) ([]Record, error) {
	var (
		all    []Record
		offset string
	)
	for {
		page, err := c.page(ctx, table, q, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" || (q.MaxRecords > 0 && len(all) >= q.MaxRecords) {
			break
		}
		offset = page.Offset
	}
	if q.MaxRecords > 0 && len(all) > q.MaxRecords {
		all = all[:q.MaxRecords]
	}
	return all, nil
}

// FirstPage reads only the first page of matching rows.
func (c *Client) FirstPage(ctx context.Context, table string, q Query) ([]Record, error) {
	page, err := c.page(ctx, table, q, "")
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

func (c *Client) page(ctx context.Context, table string, q Query, offset string) (listResponse, error) {
	var out listResponse
	endpoint := c.tableURL(table) + "?" + q.values(offset).Encode()
	err := c.do(ctx, http.MethodGet, table, endpoint, nil, &out)
	return out, err
}

type writeRecord struct {
	ID     string `json:"id,omitempty"`
	Fields any    `json:"fields"`
}

type writeRequest struct {
	Records []writeRecord `json:"records"`
}

// Create inserts rows, MaxBatch per request. Each element of rows must
// marshal to the field map of one new row.
func (c *Client) Create(ctx context.Context, table string, rows ...any) ([]Record, error) {
	recs := make([]writeRecord, len(rows))
	for i, r := range rows {
		recs[i] = writeRecord{Fields: r}
	}
	return c.write(ctx, http.MethodPost, table, recs)
}

// Update describes a partial update of one row.
type Update struct {
	ID     string
	Fields any
}

// Update patches rows, MaxBatch per request. Fields absent from an update are left untouched.
func (c *Client) Update(ctx context.Context, table string, updates ...Update) ([]Record, error) {
	recs := make([]writeRecord, len(updates))
	for i, u := range updates {
		recs[i] = writeRecord{ID: u.ID, Fields: u.Fields}
	}
	return c.write(ctx, http.MethodPatch, table, recs)
}

func (c *Client) write(ctx context.Context, method, table string, recs []writeRecord) ([]Record, error) {
	var written []Record
	for start := 0; start < len(recs); start += MaxBatch {
		end := min(start+MaxBatch, len(recs))
		body, err := json.Marshal(writeRequest{Records: recs[start:end]})
		if err != nil {
			return written, err
		}
		var out listResponse
		if err := c.do(ctx, method, table, c.tableURL(table), body, &out); err != nil {
			return written, err
		}
		written = append(written, out.Records...)
	}
	return written, nil
}

// Ping performs a one-row read against table.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.FirstPage(ctx, table, Query{MaxRecords: 1})
	return err
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method, table, endpoint string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observeRequest(table, method, resp, start)
	if err != nil {
		c.logger.Warn().Err(err).Str("table", table).Str("method", method).Msg("airtable request failed")
		return fmt.Errorf("airtable %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		c.logger.Warn().
			Int("status", apiErr.StatusCode).
			Str("type", apiErr.Type).
			Str("table", table).
			Msg("airtable returned error")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode airtable %s response: %w", table, err)
	}
	return nil
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Error) == 0 {
		return apiErr
	}
	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &detailed); err == nil {
		apiErr.Type = detailed.Type
		apiErr.Message = detailed.Message
		return apiErr
	}
	var code string
	if err := json.Unmarshal(payload.Error, &code); err == nil {
		apiErr.Type = code
	}
	return apiErr
}
