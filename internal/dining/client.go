package dining

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/dine-alert/internal/session"
)

const (
	defaultBaseURL = "https://disneyworld.disney.go.com"
	defaultTimeout = 15 * time.Second
	defaultUA      = "Mozilla/5.0 (X11; Linux x86_64) dine-alert/1.0"
)

// Client queries the dining availability endpoint. It issues exactly one
// request per call and never retries; retry policy belongs to the
// watcher, which has the task context to decide.
type Client struct {
	hc       *http.Client
	base     string
	ua       string
	sessions session.Provider
}

type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(sessions session.Provider, opts ClientOptions) *Client {
	base := defaultBaseURL
	if strings.TrimSpace(opts.BaseURL) != "" {
		base = strings.TrimRight(opts.BaseURL, "/")
	}
	timeout := defaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		base:     base,
		ua:       defaultUA,
		sessions: sessions,
	}
}

type availabilityResponse struct {
	AvailableTimes []struct {
		Time string `json:"time"`
	} `json:"availableTimes"`
}

// CheckAvailability runs one availability query for the entity, date and
// party size and returns every open slot. An empty result is not an
// error. Invalid input fails with a ValidationError before any I/O.
func (c *Client) CheckAvailability(ctx context.Context, q ReservationQuery) ([]TimeSlot, error) {
	if err := q.Validate(time.Now()); err != nil {
		return nil, err
	}
	creds, err := c.sessions.Get(ctx)
	if err != nil {
		return nil, &PermanentError{Op: "availability", Err: fmt.Errorf("session: %w", err)}
	}

	params := map[string]string{
		"restaurant": q.EntityID,
		"partySize":  strconv.Itoa(q.PartySize),
		"date":       q.DateString(),
		"mealPeriod": string(q.Meal),
	}
	status, body, err := c.do(ctx, c.base+"/dining/availability", creds.Token, params)
	if err != nil {
		return nil, &TransientError{Op: "availability", Err: err}
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, &TransientError{Op: "availability", Status: status}
	default:
		return nil, &PermanentError{Op: "availability", Status: status}
	}

	var res availabilityResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &PermanentError{Op: "availability", Err: fmt.Errorf("parse response: %w", err)}
	}
	out := make([]TimeSlot, 0, len(res.AvailableTimes))
	for _, at := range res.AvailableTimes {
		ct, err := ParseClock(at.Time)
		if err != nil {
			return nil, &PermanentError{Op: "availability", Err: fmt.Errorf("parse response: %w", err)}
		}
		out = append(out, TimeSlot{Time: ct})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, rawURL, token string, query map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Add("user-agent", c.ua)
	req.Header.Add("content-type", "application/json")
	req.Header.Add("authorization", "Bearer "+token)

	qs := req.URL.Query()
	for k, v := range query {
		qs.Add(k, v)
	}
	req.URL.RawQuery = qs.Encode()

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}
