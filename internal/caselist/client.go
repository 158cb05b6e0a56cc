package caselist

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

// DefaultBaseURL is the public API behind opencaselist.com.
const DefaultBaseURL = "https://api.opencaselist.com/v1"

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	referer   = "https://opencaselist.com/"

	maxAttempts = 3
)

// zipMagic is the local-file-header signature every .docx starts with.
// Error pages come back with status 200, so the body gets checked
// instead of the status line.
var zipMagic = []byte("PK\x03\x04")

// Client talks to the caselist archive for one caselist (topic/season).
// Round listings are cached in the store, downloaded documents on disk,
// and every call is rate-limited with polite pauses so a long scrape
// does not hammer the volunteer-run API.
type Client struct {
	baseURL  string
	caselist string
	token    string
	http     *http.Client
	store    *store.Store
	cacheDir string
	ttl      time.Duration
	delay    time.Duration
	backoff  time.Duration
}

// Options configures a Client. Store and CacheDir are optional; with
// both unset every call goes to the network.
type Options struct {
	BaseURL  string
	Caselist string
	Token    string
	CacheDir string
	TTL      time.Duration
	Store    *store.Store
	HTTP     *http.Client
}

// New builds a Client for the given caselist.
func New(opts Options) *Client {
	c := &Client{
		baseURL:  opts.BaseURL,
		caselist: opts.Caselist,
		token:    opts.Token,
		http:     opts.HTTP,
		store:    opts.Store,
		cacheDir: opts.CacheDir,
		ttl:      opts.TTL,
		delay:    300 * time.Millisecond,
		backoff:  time.Second,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.ttl <= 0 {
		c.ttl = time.Hour
	}
	return c
}

// Caselist returns the caselist name the client was built for.
func (c *Client) Caselist() string { return c.caselist }

// Schools lists the schools registered on the caselist.
func (c *Client) Schools(ctx context.Context) ([]School, error) {
	u := fmt.Sprintf("%s/caselists/%s/schools", c.baseURL, url.PathEscape(c.caselist))
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("listing schools: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("caselist %q not found", c.caselist)
	}
	return decodeList[School](body, "schools")
}

// Teams lists the teams of one school.
func (c *Client) Teams(ctx context.Context, school string) ([]Team, error) {
	u := fmt.Sprintf("%s/caselists/%s/schools/%s/teams",
		c.baseURL, url.PathEscape(c.caselist), url.PathEscape(school))
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("listing teams for %s: %w", school, err)
	}
	if body == nil {
		return nil, nil
	}
	return decodeList[Team](body, "teams")
}

// Rounds lists the disclosed rounds of one team. Listings are cached
// in the store so repeated scrapes within the TTL stay off the
// network. The archive serves team rounds under two URL layouts
// depending on deployment age; the second is tried when the first
// answers 404.
func (c *Client) Rounds(ctx context.Context, school, team string) ([]Round, error) {
	key := roundsCacheKey(c.caselist, school, team)
	if c.store != nil {
		if payload, ok, err := c.store.CachedRounds(key, c.ttl); err != nil {
			log.Printf("rounds cache read failed: %v", err)
		} else if ok {
			return decodeList[Round](payload, "rounds")
		}
	}

	u := fmt.Sprintf("%s/caselists/%s/schools/%s/teams/%s/rounds",
		c.baseURL, url.PathEscape(c.caselist), url.PathEscape(school), url.PathEscape(team))
	body, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("listing rounds for %s %s: %w", school, team, err)
	}
	if body == nil {
		u = fmt.Sprintf("%s/caselists/%s/teams/%s/%s/rounds",
			c.baseURL, url.PathEscape(c.caselist), url.PathEscape(school), url.PathEscape(team))
		body, err = c.getJSON(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("listing rounds for %s %s: %w", school, team, err)
		}
	}
	if body == nil {
		return nil, nil
	}

	rounds, err := decodeList[Round](body, "rounds")
	if err != nil {
		return nil, err
	}
	if c.store != nil {
		if err := c.store.StoreRounds(key, c.caselist, school, team, body); err != nil {
			log.Printf("rounds cache write failed: %v", err)
		}
	}
	c.sleep(ctx, c.delay)
	return rounds, nil
}

// Download fetches one archived document by its opensource path and
// returns the raw bytes. Documents are content-checked against the
// ZIP signature and cached on disk under a digest of the path, so a
// re-run never re-downloads a file it already has.
func (c *Client) Download(ctx context.Context, docPath string) ([]byte, error) {
	cacheName := blobName(docPath)
	if c.cacheDir != "" {
		if data, err := os.ReadFile(filepath.Join(c.cacheDir, cacheName)); err == nil && bytes.HasPrefix(data, zipMagic) {
			return data, nil
		}
	}

	u := fmt.Sprintf("%s/download?path=%s", c.baseURL, url.QueryEscape(docPath))
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, retry, err := c.fetchOnce(ctx, u)
		if err == nil {
			if c.cacheDir != "" {
				if err := os.MkdirAll(c.cacheDir, 0o755); err == nil {
					if err := os.WriteFile(filepath.Join(c.cacheDir, cacheName), data, 0o644); err != nil {
						log.Printf("caching %s failed: %v", cacheName, err)
					}
				}
			}
			if c.store != nil {
				if err := c.store.RecordFile(docPath, cacheName, len(data)); err != nil {
					log.Printf("recording download failed: %v", err)
				}
			}
			c.sleep(ctx, 2*c.delay)
			return data, nil
		}
		lastErr = err
		if !retry {
			break
		}
		if werr := c.sleep(ctx, c.backoff<<attempt); werr != nil {
			return nil, werr
		}
	}
	return nil, fmt.Errorf("downloading %s: %w", docPath, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, u string) (data []byte, retry bool, err error) {
	resp, err := c.do(ctx, u)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode != http.StatusNotFound, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if !bytes.HasPrefix(data, zipMagic) {
		return nil, true, fmt.Errorf("response is not a document (%d bytes)", len(data))
	}
	return data, false, nil
}

// getJSON performs a GET with retries. A 404 returns (nil, nil): the
// archive uses it for both missing resources and the older URL
// layout, and callers decide which it was. 429 answers are waited out
// with the archive's own pacing rather than the transport backoff.
func (c *Client) getJSON(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.do(ctx, u)
		if err != nil {
			lastErr = err
			if werr := c.sleep(ctx, c.backoff<<attempt); werr != nil {
				return nil, werr
			}
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("status 429")
			if werr := c.sleep(ctx, time.Duration(attempt+1)*10*c.backoff); werr != nil {
				return nil, werr
			}
			continue
		default:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}
		if werr := c.sleep(ctx, c.backoff<<attempt); werr != nil {
			return nil, werr
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: "caselist_token", Value: c.token})
	}
	return c.http.Do(req)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// decodeList reads either a bare JSON array or an object wrapping the
// array under the given key; the archive answers both shapes.
func decodeList[T any](data []byte, key string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return list, nil
}

func roundsCacheKey(caselist, school, team string) string {
	sum := md5.Sum([]byte(caselist + "\x00" + school + "\x00" + team))
	return hex.EncodeToString(sum[:])
}

// blobName is the on-disk cache name for a downloaded document.
func blobName(docPath string) string {
	sum := md5.Sum([]byte(docPath))
	return hex.EncodeToString(sum[:]) + ".docx"
}
