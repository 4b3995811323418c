package main

import (
	"os"
	"path/filepath"
	"testing"

	"localeditor/jsondoc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "errors_en.json", `{}`)
	writeFile(t, dir, "errors_ru.json", `{}`)
	writeFile(t, dir, "notices_en.json", `{}`)
	writeFile(t, dir, "readme.json", `{}`)

	sources, err := findSources(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"en": {filepath.Join(dir, "errors_en.json"), filepath.Join(dir, "notices_en.json")},
		"ru": {filepath.Join(dir, "errors_ru.json")},
	}, sources)
}

func TestBuildLanguage(t *testing.T) {
	dir := t.TempDir()

	t.Run("merges nested objects and sorts keys", func(t *testing.T) {
		a := writeFile(t, dir, "b_en.json", `{"notices": {"z": "Z"}, "errors": {"b": "B"}}`)
		b := writeFile(t, dir, "a_en.json", `{"errors": {"a": "A", /* comment */}}`)

		merged, conflicts, err := buildLanguage([]string{a, b})
		require.NoError(t, err)
		assert.Empty(t, conflicts)
		assert.Equal(t, `{"errors":{"a":"A","b":"B"},"notices":{"z":"Z"}}`, jsondoc.Compact(jsondoc.FromObject(merged)))
		assert.Equal(t, 3, countKeys(merged))
	})

	t.Run("reports conflicts", func(t *testing.T) {
		a := writeFile(t, dir, "x_en.json", `{"errors": {"a": "A"}}`)
		b := writeFile(t, dir, "y_en.json", `{"errors": {"a": "Again"}}`)

		_, conflicts, err := buildLanguage([]string{a, b})
		require.NoError(t, err)
		assert.Equal(t, []string{"Key 'errors.a' already exists (source: " + b + ")"}, conflicts)
	})

	t.Run("rejects non-object files", func(t *testing.T) {
		a := writeFile(t, dir, "arr_en.json", `["a"]`)
		_, _, err := buildLanguage([]string{a})
		assert.ErrorIs(t, err, jsondoc.ErrNotObject)
	})
}

func TestSaveJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build", "ru.json")
	doc := jsondoc.MustParseObject(`{"errors": {"internal": "Ошибка <сервера>"}}`)

	require.NoError(t, saveJSON(out, doc))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"errors\": {\n    \"internal\": \"Ошибка <сервера>\"\n  }\n}\n", string(data))
}
