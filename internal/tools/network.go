package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultFetchBytes = 512 * 1024
	minFetchBytes     = 1024
	maxFetchBytes     = 1024 * 1024
	fetchTimeout      = 15 * time.Second
	fetchUserAgent    = "friendev/0.1"
)

type networkGetContentArgs struct {
	URL      string `json:"url"`
	MaxBytes *int   `json:"max_bytes"`
}

func (e *Engine) networkGetContent(ctx context.Context, raw string) Result {
	var args networkGetContentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return fail("%v", err)
	}

	u, err := url.Parse(args.URL)
	if err != nil || u.Host == "" {
		return fail("invalid URL: %s", args.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fail("unsupported URL scheme: %s (only http or https)", u.Scheme)
	}

	limit := defaultFetchBytes
	if args.MaxBytes != nil {
		limit = min(max(*args.MaxBytes, minFetchBytes), maxFetchBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fail("request URL failed: %v", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return fail("request URL failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail("request failed with status %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.ContentLength > int64(limit) {
		return fail("response body too large (limit %s)", FormatSize(int64(limit)))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextual(contentType) {
		return fail("unsupported content type: %s (only text content is allowed)", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return fail("request URL failed: %v", err)
	}
	truncated := len(body) > limit
	if truncated {
		body = body[:limit]
	}

	size := FormatSize(int64(len(body)))
	if resp.ContentLength > 0 {
		size = FormatSize(resp.ContentLength)
	}

	note := ""
	brief := fmt.Sprintf("fetched %s", size)
	if truncated {
		note = fmt.Sprintf("Note: content truncated to %s.\n", FormatSize(int64(limit)))
		brief += " (truncated)"
	}

	return succeed(brief, "URL: %s\nStatus: %d\nContent-Type: %s\nSize: %s\n%sContent:\n%s",
		u.String(), resp.StatusCode, contentType, size, note, strings.ToValidUTF8(string(body), "�"))
}

// isTextual accepts text/*, JSON, XML and JavaScript. A missing content type
// is accepted.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/") ||
		strings.Contains(ct, "json") ||
		strings.Contains(ct, "xml") ||
		strings.Contains(ct, "javascript") ||
		strings.Contains(ct, "+text")
}
