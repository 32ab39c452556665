package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/kcalplanner/internal/models"
	"github.com/claude/kcalplanner/internal/planner"
)

// warningHeader mirrors the header the REST API sets when a change was kept
// in memory but not written to disk.
const warningHeader = "X-Kcalplanner-Warning"

// HTTPClient implements DataSource by calling the kcalplanner REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a request and decodes a 2xx JSON body into out. API errors are
// mapped back onto the planner's sentinels so tools classify them the same
// way in local and remote mode.
func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w", msg, models.ErrValidation)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", msg, planner.ErrNotFound)
		}
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("httpclient: decode %s: %w", path, err)
		}
	}
	if w := resp.Header.Get(warningHeader); w != "" {
		return fmt.Errorf("httpclient: %s: %s: %w", path, w, planner.ErrNotPersisted)
	}
	return nil
}

func userPath(id string, rest string) string {
	return "/api/v1/users/" + url.PathEscape(id) + rest
}

func (c *HTTPClient) Register(ctx context.Context, in planner.RegisterInput) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPost, "/api/v1/users", nil, in, &u)
	return u, err
}

func (c *HTTPClient) FindUser(ctx context.Context, query string) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/api/v1/users/lookup", url.Values{"q": {query}}, nil, &u)
	return u, err
}

func (c *HTTPClient) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, userID string, upd planner.ProfileUpdate) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPatch, userPath(userID, ""), nil, upd, &u)
	return u, err
}

func (c *HTTPClient) RecordSession(ctx context.Context, userID string, req planner.SessionRequest) (*planner.SessionOutcome, error) {
	var out planner.SessionOutcome
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/sessions"), nil, req, &out); err != nil {
		if out.SessionResult != nil {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) History(ctx context.Context, userID string, order planner.HistorySort) ([]models.WorkoutRecord, error) {
	var recs []models.WorkoutRecord
	params := url.Values{"sort": {order.String()}}
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/history"), params, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) Recommendations(ctx context.Context, userID string) (*planner.Recommendations, error) {
	var recs planner.Recommendations
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/recommendations"), nil, nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

func (c *HTTPClient) SuggestLoad(ctx context.Context, userID string, e models.Exercise) (float64, error) {
	params := url.Values{"group": {e.Group}}
	if e.Name != "" {
		params.Set("exercise", e.Name)
	}
	var resp struct {
		LoadKg float64 `json:"load_kg"`
	}
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/suggested-load"), params, nil, &resp); err != nil {
		return 0, err
	}
	return resp.LoadKg, nil
}

func (c *HTTPClient) Presets(ctx context.Context) ([]models.WorkoutDay, error) {
	var days []models.WorkoutDay
	if err := c.do(ctx, http.MethodGet, "/api/v1/presets", nil, nil, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (c *HTTPClient) AllRecords(ctx context.Context) ([]models.WorkoutRecord, error) {
	var recs []models.WorkoutRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/records", nil, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
