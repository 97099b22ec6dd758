// Package fetch is the plain HTTP collaborator: GET with character-encoding
// detection, returning UTF-8 text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
)

// Getter fetches a page and returns it decoded as UTF-8.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client implements Getter over net/http.
type Client struct {
	HTTP        *http.Client
	UserAgent   string
	MaxBodySize int64
}

// New returns a Client configured from cfg.
func New(cfg config.HTTP) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: cfg.Timeout},
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.MaxBodySize,
	}
}

// Get fetches url. Transport failures, non-200 responses and oversized bodies
// are reported as connectivity errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", url, apperr.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: status %s", url, apperr.ErrConnectivity, resp.Status)
	}

	limit := c.MaxBodySize
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("fetch %s: content-length %d exceeds limit of %d bytes", url, resp.ContentLength, limit)
	}
	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", url, apperr.ErrConnectivity, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch %s: body exceeds limit of %d bytes", url, limit)
	}

	return Decode(body, resp.Header.Get("Content-Type"))
}

// Decode converts body to UTF-8. The charset parameter of contentType wins;
// otherwise the encoding is detected from the bytes.
func Decode(body []byte, contentType string) ([]byte, error) {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	}
	if name == "" {
		name = Detect(body)
	}
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return body, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		// Unknown label: hand back the raw bytes rather than failing the run.
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

// Detect guesses the charset of an HTML document. It returns "" when no
// guess can be made.
func Detect(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	res, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || res == nil {
		return ""
	}
	return res.Charset
}
