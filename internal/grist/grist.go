// Package grist is the client for the Grist REST API: table, column, and
// record listing for a single document, authenticated per request.
package grist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	publipostage "github.com/jlllyfish/ink-publipostage-grist"
)

// Sentinel errors for data source operations. Both are non-retryable for
// the current request: the caller fixes credentials or the table name and
// tries again.
var (
	ErrConnection = errors.New("grist connection failed")
	ErrNotFound   = errors.New("grist resource not found")
)

// DefaultServer is the Grist instance used when none is configured.
const DefaultServer = "https://grist.numerique.gouv.fr"

// Request timeouts. Record listing without a limit gets a longer window
// because large tables are slow to serialize server-side.
const (
	defaultTimeout     = 30 * time.Second
	longFetchTimeout   = 60 * time.Second
	testTimeout        = 10 * time.Second
	longFetchRowsLimit = 100
)

// gristHelperPrefix marks internal Grist columns hidden from users.
const gristHelperPrefix = "gristHelper_"

// Credentials authenticates one request against a Grist document.
// They come from the caller, not from server configuration.
type Credentials struct {
	APIKey string
	DocID  string
}

// Valid reports whether both fields are present.
func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.DocID != ""
}

// Table identifies one table in a Grist document.
type Table struct {
	ID string `json:"id"`
}

// Client talks to one Grist server. It is safe for concurrent use; each
// call carries its own credentials.
type Client struct {
	server string
	http   *http.Client
}

// NewClient creates a Client for the given server URL.
// An empty server falls back to DefaultServer.
func NewClient(server string) *Client {
	if server == "" {
		server = DefaultServer
	}
	return &Client{
		server: strings.TrimRight(server, "/"),
		http:   &http.Client{},
	}
}

// TestConnection checks that the credentials can read the document.
func (c *Client) TestConnection(ctx context.Context, creds Credentials) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	var doc struct {
		ID string `json:"id"`
	}
	return c.get(ctx, creds, c.docURL(creds, ""), &doc)
}

// ListTables returns the tables of the document.
func (c *Client) ListTables(ctx context.Context, creds Credentials) ([]Table, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var payload struct {
		Tables []Table `json:"tables"`
	}
	if err := c.get(ctx, creds, c.docURL(creds, "/tables"), &payload); err != nil {
		return nil, err
	}
	return payload.Tables, nil
}

// ListColumns returns the column names of a table, normalized to plain
// strings. Internal gristHelper_ columns are dropped at this boundary so
// the core never sees them.
func (c *Client) ListColumns(ctx context.Context, creds Credentials, tableID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var payload struct {
		Columns []struct {
			ID string `json:"id"`
		} `json:"columns"`
	}
	path := "/tables/" + url.PathEscape(tableID) + "/columns"
	if err := c.get(ctx, creds, c.docURL(creds, path), &payload); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(payload.Columns))
	for _, col := range payload.Columns {
		if strings.HasPrefix(col.ID, gristHelperPrefix) {
			continue
		}
		names = append(names, col.ID)
	}
	return names, nil
}

// ListRows returns the records of a table flattened to rows.
// limit <= 0 fetches everything.
func (c *Client) ListRows(ctx context.Context, creds Credentials, tableID string, limit int) ([]publipostage.Row, error) {
	timeout := defaultTimeout
	if limit <= 0 || limit > longFetchRowsLimit {
		timeout = longFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.docURL(creds, "/tables/"+url.PathEscape(tableID)+"/records")
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}

	var payload struct {
		Records []struct {
			ID     int              `json:"id"`
			Fields publipostage.Row `json:"fields"`
		} `json:"records"`
	}
	if err := c.get(ctx, creds, endpoint, &payload); err != nil {
		return nil, err
	}

	rows := make([]publipostage.Row, len(payload.Records))
	for i, rec := range payload.Records {
		rows[i] = rec.Fields
	}
	return rows, nil
}

// docURL builds an API URL under the credential's document.
func (c *Client) docURL(creds Credentials, path string) string {
	return c.server + "/api/docs/" + url.PathEscape(creds.DocID) + path
}

// get performs an authenticated GET and decodes the JSON response into out.
// Network errors and 5xx/auth statuses map to ErrConnection; 404 maps to
// ErrNotFound.
func (c *Client) get(ctx context.Context, creds Credentials, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s returned %s", ErrConnection, endpoint, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrConnection, err)
	}
	return nil
}
