// Package github reads locale listings and files from a GitHub repository
// through the contents API and raw.githubusercontent.com.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"localeditor/cache"
	"localeditor/jsondoc"
	"localeditor/types"
	"localeditor/utils"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIURL = "https://api.github.com"
	DefaultRawURL = "https://raw.githubusercontent.com"
	// DefaultRef is used for raw fetches when the repo path names no ref.
	DefaultRef = "master"
	// DefaultRefLocale is the folder listed when no path is given.
	DefaultRefLocale = "en_us"

	maxBodySize = 16 << 20
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config holds the endpoints and limits of the client.
type Config struct {
	APIURL      string
	RawURL      string
	Timeout     time.Duration
	Concurrency int
	UserAgent   string
}

// NewConfigFromEnv reads GITHUB_API_URL, GITHUB_RAW_URL, GITHUB_TIMEOUT and
// GITHUB_LIST_CONCURRENCY.
func NewConfigFromEnv() Config {
	return Config{
		APIURL:      utils.GetEnv("GITHUB_API_URL", DefaultAPIURL),
		RawURL:      utils.GetEnv("GITHUB_RAW_URL", DefaultRawURL),
		Timeout:     utils.GetEnvDuration("GITHUB_TIMEOUT", 15*time.Second),
		Concurrency: utils.GetEnvInt("GITHUB_LIST_CONCURRENCY", 4),
		UserAgent:   utils.GetEnv("GITHUB_USER_AGENT", "localeditor"),
	}
}

// Client is safe for concurrent use.
type Client struct {
	cfg   Config
	http  *http.Client
	cache *cache.Cache
}

// NewClient creates a client; responses are cached in c when it is non-nil.
func NewClient(cfg Config, c *cache.Cache) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: c,
	}
}

// ParseRepoPath splits "owner/repo/tree/ref" into the repository and ref.
// Without "/tree/" the ref is empty.
func ParseRepoPath(repoPath string) (repo, ref string) {
	if !strings.Contains(repoPath, "/tree/") {
		return repoPath, ""
	}
	parts := strings.Split(repoPath, "/tree/")
	return parts[0], parts[1]
}

// ContentsURL is the contents-API URL for path inside repoPath.
func (c *Client) ContentsURL(repoPath, path string) string {
	repo, ref := ParseRepoPath(repoPath)
	u := fmt.Sprintf("%s/repos/%s/contents/%s", strings.TrimRight(c.cfg.APIURL, "/"), repo, path)
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

// RawURL is the raw download URL for path inside repoPath.
func (c *Client) RawURL(repoPath, path string) string {
	repo, ref := ParseRepoPath(repoPath)
	if ref == "" {
		ref = DefaultRef
	}
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(c.cfg.RawURL, "/"), repo, ref, path)
}

// ListLocales returns the locale folders directly under langDir.
func (c *Client) ListLocales(ctx context.Context, repoPath, langDir string) ([]types.LocaleEntry, error) {
	items, err := c.list(ctx, repoPath, langDir)
	if err != nil {
		return []types.LocaleEntry{}, err
	}

	dirs := make([]types.LocaleEntry, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			dirs = append(dirs, item)
		}
	}
	return dirs, nil
}

// ListLocaleFiles lists path recursively, defaulting to langDir/en_us.
// Sub-directories are fetched concurrently and keep the listing order. A
// failed sub-directory is returned without children and its error is
// reported in the aggregated error alongside the partial tree.
func (c *Client) ListLocaleFiles(ctx context.Context, repoPath, langDir, path string) ([]types.LocaleEntry, error) {
	if path == "" {
		path = langDir + "/" + DefaultRefLocale
	}

	items, err := c.list(ctx, repoPath, path)
	if err != nil {
		return []types.LocaleEntry{}, err
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.Concurrency)

	for i := range items {
		if !items[i].IsDir() {
			continue
		}
		i := i
		g.Go(func() error {
			children, err := c.ListLocaleFiles(ctx, repoPath, langDir, items[i].Path)
			if err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("list %s: %w", items[i].Path, err))
				mu.Unlock()
			}
			items[i].Children = children
			return nil
		})
	}
	_ = g.Wait()

	return items, result.ErrorOrNil()
}

// FlattenFiles turns a recursive listing into selectable files. Files in
// nested folders are named "<dir>/<file>".
func FlattenFiles(entries []types.LocaleEntry) []types.FileItem {
	list := []types.FileItem{}
	return flattenInto(entries, list, "")
}

func flattenInto(entries []types.LocaleEntry, list []types.FileItem, parent string) []types.FileItem {
	for _, entry := range entries {
		if entry.Kind == types.EntryFile {
			list = append(list, types.FileItem{Name: parent + entry.Name, Path: parent + entry.Name})
		}
		if len(entry.Children) > 0 {
			list = flattenInto(entry.Children, list, parent+entry.Name+"/")
		}
	}
	return list
}

// FetchDocument downloads a locale file. It never fails: transport errors,
// unparsable bodies and non-object roots all yield an empty Object.
func (c *Client) FetchDocument(ctx context.Context, repoPath, filePath string) *jsondoc.Object {
	u := c.RawURL(repoPath, filePath)
	body, err := c.get(ctx, u)
	if err != nil {
		utils.Logger.Warn("Failed to fetch locale file",
			zap.String("url", u),
			zap.Error(err),
		)
		return jsondoc.NewObject()
	}

	doc, err := decodeDocument(body)
	if err != nil {
		utils.Logger.Warn("Failed to parse locale file",
			zap.String("url", u),
			zap.Error(err),
		)
		return jsondoc.NewObject()
	}
	return doc
}

// decodeDocument parses a locale body leniently. Contents-API file objects
// ({"encoding":"base64","content":...}) are unwrapped first.
func decodeDocument(body []byte) (*jsondoc.Object, error) {
	v, err := jsondoc.ParseLenient(bytes.TrimPrefix(body, utf8BOM))
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, jsondoc.ErrNotObject
	}

	if enc, _ := obj.Get("encoding"); enc.Kind() == jsondoc.KindString {
		content, _ := obj.Get("content")
		text, isString := content.AsString()
		if s, _ := enc.AsString(); s == "base64" && isString {
			decoded, err := base64.StdEncoding.DecodeString(stripNewlines(text))
			if err != nil {
				return nil, fmt.Errorf("decode base64 content: %w", err)
			}
			return decodeDocument(decoded)
		}
	}
	return obj, nil
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// list fetches one contents-API directory.
func (c *Client) list(ctx context.Context, repoPath, path string) ([]types.LocaleEntry, error) {
	u := c.ContentsURL(repoPath, path)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var items []types.LocaleEntry
	if err := json.Unmarshal(body, &items); err != nil {
		// cached body is not a listing
		c.invalidate(ctx, u)
		return nil, fmt.Errorf("decode listing %s: %w", path, err)
	}
	for i := range items {
		items[i].Children = nil
	}
	return items, nil
}

// get returns the body for u, going through the cache. Failed requests are
// evicted so the next call retries.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, u); ok {
			return body, nil
		}
	}

	body, err := c.do(ctx, u)
	if err != nil {
		c.invalidate(ctx, u)
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, u, body)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if strings.HasPrefix(u, c.cfg.APIURL) {
		req.Header.Set("Accept", "application/vnd.github+json")
	}

	utils.Logger.Debug("GitHub request", zap.String("url", u))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return body, nil
}

func (c *Client) invalidate(ctx context.Context, u string) {
	if c.cache != nil {
		c.cache.Invalidate(ctx, u)
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s returned %d", e.URL, e.StatusCode)
}
