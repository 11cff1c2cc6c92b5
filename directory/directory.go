// Package directory is a client for the service mapping VOD identifiers to stored event logs.
//
// The service is a key-value directory: keys are "platform:vodId", values name
// the URL of the log. Read endpoints are public; write endpoints require the
// admin secret in the X-Admin-Secret header.
package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/network"
)

// ErrNotFound reports that the directory has no log for a VOD.
var ErrNotFound = errors.New("no event log known for this VOD")

// ErrUnauthorized reports a missing or rejected admin secret.
var ErrUnauthorized = errors.New("admin secret missing or rejected")

// Entry is a directory value.
type Entry struct {
	Key     string `json:"key,omitempty"`
	LogURL  string `json:"logUrl"`
	VODName string `json:"vodName"`
}

// UnmarshalJSON accepts both the object form and a legacy bare URL string.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*e = Entry{LogURL: raw}
		return nil
	}

	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Client talks to one directory service.
type Client struct {
	base   string
	secret string
	http   *http.Client
}

// New returns a client for the service at base. The secret may be empty for read-only use.
func New(base, secret string, client *http.Client) *Client {
	if client == nil {
		client = network.Client
	}
	return &Client{base: strings.TrimRight(base, "/"), secret: secret, http: client}
}

// Base returns the service base URL.
func (c *Client) Base() string {
	return c.base
}

// Key renders a directory key.
func Key(platform, vodID string) string {
	return platform + ":" + vodID
}

// Lookup finds the log location for a VOD.
func (c *Client) Lookup(ctx context.Context, platform, vodID string) (Entry, error) {
	q := url.Values{"platform": {platform}, "id": {vodID}}
	target := c.base + "/lookup?" + q.Encode()

	var entry Entry
	if err := network.GetJSON(ctx, c.http, target, &entry); err != nil {
		if network.IsStatus(err, http.StatusNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("lookup %s: %w", Key(platform, vodID), err)
	}

	if entry.LogURL == "" {
		return Entry{}, ErrNotFound
	}
	entry.Key = Key(platform, vodID)
	return entry, nil
}

// Fetch downloads and parses the log at logURL.
func (c *Client) Fetch(ctx context.Context, logURL string) (*eventlog.Log, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, err := network.Do(c.http, req)
	if err != nil {
		return nil, fmt.Errorf("fetch log: %w", err)
	}

	l, err := eventlog.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("fetch log %s: %w", logURL, err)
	}

	log.Debugf("directory: fetched %d events from %s", l.Len(), logURL)
	return l, nil
}

// LogURL returns the public URL of an uploaded log.
func (c *Client) LogURL(logID string) string {
	return c.base + "/logs/" + url.PathEscape(logID)
}

func (c *Client) admin(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	if c.secret == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Admin-Secret", c.secret)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := network.Do(c.http, req)
	if err != nil {
		// Without a valid secret the service routes to its public 404.
		if network.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// List returns every linked VOD.
func (c *Client) List(ctx context.Context) ([]Entry, error) {
	body, err := c.admin(ctx, http.MethodGet, "/list", nil, "")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return entries, nil
}

// Upload stores raw log content and returns its log id.
// The content is validated locally first so a broken log never reaches the service.
func (c *Client) Upload(ctx context.Context, content []byte) (string, error) {
	if _, err := eventlog.Parse(content); err != nil {
		return "", err
	}

	body, err := c.admin(ctx, http.MethodPost, "/upload", content, "application/json")
	if err != nil {
		return "", err
	}

	var resp struct {
		LogID string `json:"logId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	}
	if resp.LogID == "" {
		return "", errors.New("upload: service returned no log id")
	}
	return resp.LogID, nil
}

// Link describes a submission binding VOD ids to a log.
type Link struct {
	TwitchID  string `json:"twitchId,omitempty"`
	YouTubeID string `json:"youtubeId,omitempty"`
	LogURL    string `json:"logUrl"`
	VODName   string `json:"vodName,omitempty"`
}

// Submit links one or both VOD ids to a log URL.
func (c *Client) Submit(ctx context.Context, link Link) error {
	if link.LogURL == "" {
		return errors.New("submit: log url is required")
	}
	if link.TwitchID == "" && link.YouTubeID == "" {
		return errors.New("submit: at least one VOD id is required")
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return err
	}
	_, err = c.admin(ctx, http.MethodPost, "/submit", payload, "application/json")
	return err
}

// Delete removes directory keys.
func (c *Client) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	payload, err := json.Marshal(struct {
		KeysToDelete []string `json:"keysToDelete"`
	}{keys})
	if err != nil {
		return err
	}
	_, err = c.admin(ctx, http.MethodPost, "/delete", payload, "application/json")
	return err
}
