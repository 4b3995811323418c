package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"localeditor/cache"
	"localeditor/jsondoc"
	"localeditor/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name, path string, kind types.EntryKind) map[string]any {
	return map[string]any{"name": name, "path": path, "type": kind, "download_url": "https://raw.example/" + path}
}

// fakeGitHub serves a small locale tree under assets/base/lang.
func fakeGitHub(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	listings := map[string][]map[string]any{
		"assets/base/lang": {
			entry("en_us", "assets/base/lang/en_us", types.EntryDir),
			entry("ru_ru", "assets/base/lang/ru_ru", types.EntryDir),
			entry("README.md", "assets/base/lang/README.md", types.EntryFile),
		},
		"assets/base/lang/en_us": {
			entry("blocks", "assets/base/lang/en_us/blocks", types.EntryDir),
			entry("game.json", "assets/base/lang/en_us/game.json", types.EntryFile),
			entry("items", "assets/base/lang/en_us/items", types.EntryDir),
		},
		"assets/base/lang/en_us/blocks": {
			entry("stone.json", "assets/base/lang/en_us/blocks/stone.json", types.EntryFile),
			entry("ores", "assets/base/lang/en_us/blocks/ores", types.EntryDir),
		},
		"assets/base/lang/en_us/blocks/ores": {
			entry("iron.json", "assets/base/lang/en_us/blocks/ores/iron.json", types.EntryFile),
		},
	}

	files := map[string]string{
		"/Owner/Repo/master/assets/base/lang/en_us/game.json": `{
			// comment
			"title": "Hello",
			"nested": {"x": "A",},
		}`,
		"/Owner/Repo/dev/assets/base/lang/en_us/game.json": `{"title": "Dev"}`,
		"/Owner/Repo/master/assets/base/lang/en_us/array.json": `["not", "an", "object"]`,
		"/Owner/Repo/master/assets/base/lang/en_us/broken.json": `{"title": `,
		"/Owner/Repo/master/assets/base/lang/en_us/bom.json":    "\ufeff{\"a\": \"b\"}",
		"/Owner/Repo/master/assets/base/lang/en_us/deep.json":   `{"a": ` + strings.Repeat("[", 100000) + strings.Repeat("]", 100000) + `}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Owner/Repo/contents/", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		path := strings.TrimPrefix(r.URL.Path, "/repos/Owner/Repo/contents/")
		if path == "assets/base/lang/en_us/items" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if path == "encoded.json" {
			content := base64.StdEncoding.EncodeToString([]byte(`{"greeting": "hi"}`))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type": "file", "encoding": "base64", "content": content[:4] + "\n" + content[4:],
			})
			return
		}
		items, ok := listings[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(items)
	})
	mux.HandleFunc("/Owner/Repo/", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		body, ok := files[r.URL.Path]
		if !ok {
			http.Error(w, "404: Not Found", http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprint(w, body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, c *cache.Cache) *Client {
	t.Helper()
	return NewClient(Config{APIURL: srv.URL, RawURL: srv.URL, Timeout: 5 * time.Second, Concurrency: 2}, c)
}

func TestParseRepoPath(t *testing.T) {
	tests := []struct {
		input string
		repo  string
		ref   string
	}{
		{"FinalForEach/Cosmic-Reach-Localization/tree/master", "FinalForEach/Cosmic-Reach-Localization", "master"},
		{"owner/repo", "owner/repo", ""},
		{"owner/repo/tree/feature/x", "owner/repo", "feature/x"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			repo, ref := ParseRepoPath(tt.input)
			assert.Equal(t, tt.repo, repo)
			assert.Equal(t, tt.ref, ref)
		})
	}
}

func TestURLs(t *testing.T) {
	c := NewClient(Config{}, nil)

	assert.Equal(t,
		"https://api.github.com/repos/o/r/contents/assets/base/lang?ref=dev",
		c.ContentsURL("o/r/tree/dev", "assets/base/lang"))
	assert.Equal(t,
		"https://api.github.com/repos/o/r/contents/assets/base/lang",
		c.ContentsURL("o/r", "assets/base/lang"))
	assert.Equal(t,
		"https://raw.githubusercontent.com/o/r/master/assets/base/lang/en_us/game.json",
		c.RawURL("o/r", "assets/base/lang/en_us/game.json"))
	assert.Equal(t,
		"https://raw.githubusercontent.com/o/r/dev/x.json",
		c.RawURL("o/r/tree/dev", "x.json"))
}

func TestListLocales(t *testing.T) {
	srv := fakeGitHub(t, nil)
	c := newTestClient(t, srv, nil)

	locales, err := c.ListLocales(context.Background(), "Owner/Repo", "assets/base/lang")
	require.NoError(t, err)
	require.Len(t, locales, 2)
	assert.Equal(t, "en_us", locales[0].Name)
	assert.Equal(t, "ru_ru", locales[1].Name)

	locales, err = c.ListLocales(context.Background(), "Owner/Repo", "missing")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.NotNil(t, locales)
	assert.Empty(t, locales)
}

func TestListLocaleFiles(t *testing.T) {
	srv := fakeGitHub(t, nil)
	c := newTestClient(t, srv, nil)

	tree, err := c.ListLocaleFiles(context.Background(), "Owner/Repo", "assets/base/lang", "")
	// items/ fails, the rest of the tree is still returned
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets/base/lang/en_us/items")

	require.Len(t, tree, 3)
	assert.Equal(t, "blocks", tree[0].Name)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "ores", tree[0].Children[1].Name)
	require.Len(t, tree[0].Children[1].Children, 1)
	assert.Empty(t, tree[2].Children)

	files := FlattenFiles(tree)
	assert.Equal(t, []types.FileItem{
		{Name: "blocks/stone.json", Path: "blocks/stone.json"},
		{Name: "blocks/ores/iron.json", Path: "blocks/ores/iron.json"},
		{Name: "game.json", Path: "game.json"},
	}, files)
}

func TestFlattenFilesEmpty(t *testing.T) {
	files := FlattenFiles(nil)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestFetchDocument(t *testing.T) {
	srv := fakeGitHub(t, nil)
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	t.Run("lenient body", func(t *testing.T) {
		doc := c.FetchDocument(ctx, "Owner/Repo", "assets/base/lang/en_us/game.json")
		assert.Equal(t, []string{"title", "nested"}, doc.Keys())
		v, ok := doc.Lookup([]string{"nested", "x"})
		require.True(t, ok)
		assert.Equal(t, jsondoc.String("A"), v)
	})

	t.Run("ref from repo path", func(t *testing.T) {
		doc := c.FetchDocument(ctx, "Owner/Repo/tree/dev", "assets/base/lang/en_us/game.json")
		v, _ := doc.Get("title")
		assert.Equal(t, jsondoc.String("Dev"), v)
	})

	t.Run("byte order mark", func(t *testing.T) {
		doc := c.FetchDocument(ctx, "Owner/Repo", "assets/base/lang/en_us/bom.json")
		assert.Equal(t, 1, doc.Len())
	})

	for _, name := range []string{"missing.json", "array.json", "broken.json", "deep.json"} {
		t.Run("empty on "+name, func(t *testing.T) {
			doc := c.FetchDocument(ctx, "Owner/Repo", "assets/base/lang/en_us/"+name)
			require.NotNil(t, doc)
			assert.Equal(t, 0, doc.Len())
		})
	}
}

func TestDecodeContentsAPIFile(t *testing.T) {
	srv := fakeGitHub(t, nil)
	c := newTestClient(t, srv, nil)

	body, err := c.get(context.Background(), c.ContentsURL("Owner/Repo", "encoded.json"))
	require.NoError(t, err)

	doc, err := decodeDocument(body)
	require.NoError(t, err)
	v, _ := doc.Get("greeting")
	assert.Equal(t, jsondoc.String("hi"), v)
}

func TestClientCaching(t *testing.T) {
	var hits atomic.Int64
	srv := fakeGitHub(t, &hits)
	rc, err := cache.New(cache.Config{Size: 16, TTL: time.Minute}, nil)
	require.NoError(t, err)
	c := newTestClient(t, srv, rc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.FetchDocument(ctx, "Owner/Repo", "assets/base/lang/en_us/game.json")
	}
	assert.Equal(t, int64(1), hits.Load())

	// failures are not cached
	for i := 0; i < 2; i++ {
		c.FetchDocument(ctx, "Owner/Repo", "assets/base/lang/en_us/missing.json")
	}
	assert.Equal(t, int64(3), hits.Load())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("GITHUB_API_URL", "http://127.0.0.1:1")
	t.Setenv("GITHUB_LIST_CONCURRENCY", "8")

	cfg := NewConfigFromEnv()
	assert.Equal(t, "http://127.0.0.1:1", cfg.APIURL)
	assert.Equal(t, DefaultRawURL, cfg.RawURL)
	assert.Equal(t, 8, cfg.Concurrency)
}
