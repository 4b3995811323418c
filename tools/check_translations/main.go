// check_translations compares a translation file with its reference offline.
//
//	go run ./tools/check_translations -ref en_us/game.json -translation ru_ru/game.json
//	go run ./tools/check_translations -ref en_us/game.json -translation ru_ru/game.json -template ru_ru/game.todo.json
//	go run ./tools/check_translations -code -path .
//
// With -code it checks the service's own messages instead: every message ID
// used in Go sources must exist in each locales/build/<lang>.json.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"localeditor/jsondoc"
	"localeditor/keypath"
	"localeditor/mutate"
	"localeditor/reconcile"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func main() {
	var (
		refFile      string
		trFile       string
		templateFile string
		codeMode     bool
		rootPath     string
	)

	flag.StringVar(&refFile, "ref", "", "Reference locale file")
	flag.StringVar(&trFile, "translation", "", "Translation locale file (may not exist yet)")
	flag.StringVar(&templateFile, "template", "", "Write the translation with missing keys filled from the reference")
	flag.BoolVar(&codeMode, "code", false, "Check message IDs in Go sources against locales/build")
	flag.StringVar(&rootPath, "path", ".", "Project root path for -code")
	flag.Parse()

	if codeMode {
		if !checkCode(os.Stdout, rootPath) {
			os.Exit(1)
		}
		return
	}

	if refFile == "" || trFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	reference, err := loadDocument(refFile, false)
	if err != nil {
		fmt.Printf("Failed to load reference file: %v\n", err)
		os.Exit(1)
	}
	translation, err := loadDocument(trFile, true)
	if err != nil {
		fmt.Printf("Failed to load translation file: %v\n", err)
		os.Exit(1)
	}

	root := reconcile.Documents(reference, translation)
	stats := reconcile.Summarize(root)
	printReport(os.Stdout, stats)

	if templateFile != "" {
		template := buildTemplate(root, translation)
		if err := os.WriteFile(templateFile, []byte(jsondoc.PrettyObject(template)+"\n"), 0644); err != nil {
			fmt.Printf("Error writing template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n\u2713 Template written to %s\n", templateFile)
	}

	if len(stats.Missing) > 0 || len(stats.Extra) > 0 {
		os.Exit(1)
	}
}

// loadDocument reads a locale file leniently. A missing translation file is
// an empty document.
func loadDocument(filePath string, allowMissing bool) (*jsondoc.Object, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if allowMissing && os.IsNotExist(err) {
			return jsondoc.NewObject(), nil
		}
		return nil, err
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (*jsondoc.Object, error) {
	v, err := jsondoc.ParseLenient(bytes.TrimPrefix(data, utf8BOM))
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, jsondoc.ErrNotObject
	}
	return obj, nil
}

func printReport(w io.Writer, stats reconcile.Stats) {
	fmt.Fprintln(w, "=== RESULTS ===")
	fmt.Fprintf(w, "\nTranslated: %d of %d keys\n", stats.Translated, stats.Leaves)

	if len(stats.Missing) > 0 {
		fmt.Fprintf(w, "\nKeys missing in translation (%d):\n", len(stats.Missing))
		for _, key := range stats.Missing {
			fmt.Fprintln(w, "  -", key)
		}
	} else {
		fmt.Fprintln(w, "\nAll reference keys present in translation!")
	}

	if len(stats.Extra) > 0 {
		fmt.Fprintf(w, "\n\u26a0 Keys not in reference (%d):\n", len(stats.Extra))
		for _, key := range stats.Extra {
			fmt.Fprintln(w, "  -", key)
		}
	}
}

// buildTemplate fills every missing translation leaf with the reference
// value so a translator only has to overwrite text.
func buildTemplate(root reconcile.Row, translation *jsondoc.Object) *jsondoc.Object {
	out := translation
	for _, leaf := range reconcile.Leaves(root) {
		if leaf.HasReference && !leaf.HasTranslation {
			out = mutate.SetAtPath(out, leaf.Path, leaf.Reference)
		}
	}
	return out
}

// Message IDs are passed around as literals ("errors.not_ready") before
// they reach utils.T, so match the literals rather than the calls.
var translationKeyRegex = regexp.MustCompile(`["']((?:errors|notices)\.[a-z0-9_]+)["']`)

// checkCode reports message IDs missing from any built message file.
func checkCode(w io.Writer, rootPath string) bool {
	usedKeys, err := findTranslationKeys(rootPath)
	if err != nil {
		fmt.Fprintf(w, "Error finding translation keys: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "Found %d translation keys in the code\n", len(usedKeys))

	files, err := filepath.Glob(filepath.Join(rootPath, "locales", "build", "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(w, "No built locale files found (run build_locales): %v\n", err)
		return false
	}

	ok := true
	for _, file := range files {
		doc, err := loadDocument(file, false)
		if err != nil {
			fmt.Fprintf(w, "Failed to load %s: %v\n", file, err)
			ok = false
			continue
		}
		missing := missingKeys(doc, usedKeys)
		if len(missing) == 0 {
			fmt.Fprintf(w, "\nAll keys present in %s!\n", filepath.Base(file))
			continue
		}
		ok = false
		fmt.Fprintf(w, "\nKeys missing in %s:\n", filepath.Base(file))
		for _, key := range missing {
			fmt.Fprintln(w, "  -", key)
		}
	}
	return ok
}

func missingKeys(doc *jsondoc.Object, keys []string) []string {
	var missing []string
	for _, key := range keys {
		if _, found := doc.Lookup(keypath.Split(key)); !found {
			missing = append(missing, key)
		}
	}
	return missing
}

// Find all translation keys in the codebase
func findTranslationKeys(rootPath string) ([]string, error) {
	keys := make(map[string]bool)

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", "_examples", "check_translations":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, line := range strings.Split(string(content), "\n") {
			// Skip commented lines
			if strings.HasPrefix(strings.TrimSpace(line), "//") {
				continue
			}
			for _, match := range translationKeyRegex.FindAllStringSubmatch(line, -1) {
				keys[match[1]] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(keys))
	for key := range keys {
		result = append(result, key)
	}
	sort.Strings(result)
	return result, nil
}
