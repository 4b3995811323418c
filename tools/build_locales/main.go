// build_locales merges locales/<name>_<lang>.json into locales/build/<lang>.json,
// the message bundles embedded into the service.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"localeditor/jsondoc"
)

func main() {
	var localesDir string
	flag.StringVar(&localesDir, "dir", "locales", "Locales source directory")
	flag.Parse()

	buildDir := filepath.Join(localesDir, "build")

	sources, err := findSources(localesDir)
	if err != nil {
		fmt.Printf("Error finding locale files: %v\n", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		fmt.Printf("No <name>_<lang>.json files in %s\n", localesDir)
		os.Exit(1)
	}

	langs := make([]string, 0, len(sources))
	for lang := range sources {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	built := make(map[string]*jsondoc.Object, len(langs))
	failed := false
	for _, lang := range langs {
		fmt.Printf("Building %s from %d files\n", lang, len(sources[lang]))
		merged, conflicts, err := buildLanguage(sources[lang])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(conflicts) > 0 {
			fmt.Printf("\nERROR: Key conflicts found in %s files:\n", lang)
			for _, conflict := range conflicts {
				fmt.Printf("  - %s\n", conflict)
			}
			failed = true
			continue
		}
		built[lang] = merged
	}
	if failed {
		os.Exit(1)
	}

	for _, lang := range langs {
		outputFile := filepath.Join(buildDir, lang+".json")
		fmt.Printf("Saving %s locale to: %s\n", lang, outputFile)
		if err := saveJSON(outputFile, built[lang]); err != nil {
			fmt.Printf("Error saving %s locale: %v\n", lang, err)
			os.Exit(1)
		}
	}

	fmt.Println("\nLocale build completed successfully!")
	for _, lang := range langs {
		fmt.Printf("%s keys: %d\n", lang, countKeys(built[lang]))
	}
}

// findSources groups locale source files by language suffix.
func findSources(localesDir string) (map[string][]string, error) {
	files, err := filepath.Glob(filepath.Join(localesDir, "*_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	sources := make(map[string][]string)
	for _, file := range files {
		base := strings.TrimSuffix(filepath.Base(file), ".json")
		lang := base[strings.LastIndex(base, "_")+1:]
		if lang == "" {
			continue
		}
		sources[lang] = append(sources[lang], file)
	}
	return sources, nil
}

// buildLanguage merges files in order and sorts keys recursively. A key
// defined twice with a non-object value is a conflict.
func buildLanguage(files []string) (*jsondoc.Object, []string, error) {
	merged := jsondoc.NewObject()
	var conflicts []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, err
		}
		v, err := jsondoc.ParseLenient(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse JSON in %s: %w", file, err)
		}
		source, ok := v.AsObject()
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w", file, jsondoc.ErrNotObject)
		}
		merged = mergeObjects(merged, source, "", file, &conflicts)
	}
	return sortObject(merged), conflicts, nil
}

// Recursively merge two objects, detecting key conflicts
func mergeObjects(target, source *jsondoc.Object, prefix, sourceFile string, conflicts *[]string) *jsondoc.Object {
	out := target
	source.Range(func(key string, value jsondoc.Value) bool {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		existing, exists := out.Get(key)
		if !exists {
			out = out.With(key, value)
			return true
		}
		existingObj, existingIsObj := existing.AsObject()
		sourceObj, sourceIsObj := value.AsObject()
		if existingIsObj && sourceIsObj {
			out = out.With(key, jsondoc.FromObject(mergeObjects(existingObj, sourceObj, fullKey, sourceFile, conflicts)))
			return true
		}
		*conflicts = append(*conflicts, fmt.Sprintf("Key '%s' already exists (source: %s)", fullKey, sourceFile))
		return true
	})
	return out
}

// Sort JSON keys recursively
func sortObject(o *jsondoc.Object) *jsondoc.Object {
	keys := o.Keys()
	sort.Strings(keys)

	out := jsondoc.NewObject()
	for _, k := range keys {
		v, _ := o.Get(k)
		if nested, ok := v.AsObject(); ok {
			v = jsondoc.FromObject(sortObject(nested))
		}
		out.Set(k, v)
	}
	return out
}

// Save JSON with two-space indentation and a trailing newline
func saveJSON(filePath string, o *jsondoc.Object) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(jsondoc.Compact(jsondoc.FromObject(o))), "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, buf.Bytes(), 0644)
}

// Recursively count leaf keys
func countKeys(o *jsondoc.Object) int {
	count := 0
	o.Range(func(_ string, v jsondoc.Value) bool {
		if nested, ok := v.AsObject(); ok {
			count += countKeys(nested)
		} else {
			count++
		}
		return true
	})
	return count
}
