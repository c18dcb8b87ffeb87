package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// HTTPOptions configures HTTPClient.
type HTTPOptions struct {
	// Endpoint is the deployed script URL.
	Endpoint string
	// Token, when set, is sent as a bearer token.
	Token string
	// Timeout bounds every request.
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	// Location is the site time zone used to interpret dates and clocks.
	Location *time.Location
	// Transport overrides the base round tripper (tests).
	Transport http.RoundTripper
}

// HTTPClient is the ledger adapter for the spreadsheet script endpoint.
type HTTPClient struct {
	endpoint *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	loc      *time.Location
}

var (
	_ Client       = (*HTTPClient)(nil)
	_ RosterSource = (*HTTPClient)(nil)
)

func NewHTTPClient(ctx context.Context, opts HTTPOptions) (*HTTPClient, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ledger endpoint %q", opts.Endpoint)
	}

	base := &http.Client{Transport: opts.Transport}
	hc := base
	if opts.Token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}))
	}
	hc.Timeout = opts.Timeout

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	return &HTTPClient{
		endpoint: u,
		http:     hc,
		limiter:  rate.NewLimiter(limit, burst),
		loc:      loc,
	}, nil
}

func (c *HTTPClient) sheetURL(sheet string, extra url.Values) string {
	u := *c.endpoint
	q := u.Query()
	q.Set("sheet", sheet)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%w: throttled: %v", ErrUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, truncate(body))
	}
	return body, nil
}

func (c *HTTPClient) get(ctx context.Context, sheet string, extra url.Values) ([][]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheetURL(sheet, extra), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows(body)
	if err != nil {
		// an HTML error page from the script host is an outage, not data
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rows, nil
}

// FetchRecords reads the record sheet. The range is passed to the script and
// applied again locally, since older deployments ignore it. Named rows whose
// date cell cannot be read are returned undated whatever the range.
func (c *HTTPClient) FetchRecords(ctx context.Context, r DateRange) ([]models.CheckIn, error) {
	rows, err := c.get(ctx, sheetRecords, url.Values{"from": {string(r.From)}, "to": {string(r.To)}})
	if err != nil {
		return nil, err
	}

	result := make([]models.CheckIn, 0, len(rows))
	for _, row := range dropHeader(rows, "nama") {
		rec, err := decodeRecord(row, c.loc)
		switch {
		case err == nil:
			if r.Contains(rec.Date) {
				result = append(result, rec)
			}
		case rec.PersonID != "":
			result = append(result, rec)
		}
	}
	return result, nil
}

// FetchRoster reads the roster sheet.
func (c *HTTPClient) FetchRoster(ctx context.Context) ([]models.Person, error) {
	rows, err := c.get(ctx, sheetRoster, nil)
	if err != nil {
		return nil, err
	}
	result := make([]models.Person, 0, len(rows))
	for _, row := range dropHeader(rows, "nama") {
		if p, ok := decodePerson(row); ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// AppendRecord posts one record. Besides the script's JSON envelope only the
// bare "Success" reply counts as an acknowledgment; any other 2xx body, such as
// the host's HTML error page, leaves the write unconfirmed.
func (c *HTTPClient) AppendRecord(ctx context.Context, rec models.CheckIn) error {
	payload, err := json.Marshal(encodeAppend(rec, c.loc))
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}

	var ack appendResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		if strings.EqualFold(strings.TrimSpace(string(body)), plainAck) {
			return nil
		}
		return fmt.Errorf("%w: unrecognized append reply: %s", ErrUnavailable, truncate(body))
	}
	if ack.Error != "" || (ack.OK != nil && !*ack.OK) {
		if ack.Error == "" {
			ack.Error = "append not acknowledged"
		}
		return fmt.Errorf("%w: %s", ErrRejected, ack.Error)
	}
	return nil
}

// IsUnavailable reports whether err leaves the outcome of a call unknown.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
