package types

// EntryKind is the GitHub contents-API item type.
type EntryKind string

const (
	EntryFile EntryKind = "file"
	EntryDir  EntryKind = "dir"
)

// LocaleEntry is one item of a locale directory listing. Children is only
// filled by recursive listings.
type LocaleEntry struct {
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	DownloadURL string        `json:"download_url"`
	Kind        EntryKind     `json:"type"`
	Children    []LocaleEntry `json:"files,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e LocaleEntry) IsDir() bool {
	return e.Kind == EntryDir
}

// FileItem is a selectable locale file. Name carries the parent directory
// prefix ("blocks/stone.json") and is the path relative to a locale folder.
type FileItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Selections is what the user is currently translating.
type Selections struct {
	File              string `json:"file"`
	RefLocale         string `json:"refLocale"`
	TranslationLocale string `json:"translationLocale,omitempty"`
}

// Settings points the editor at a repository and its locale folder.
type Settings struct {
	RepoPath string `json:"repoPath"`
	LangPath string `json:"langPath"`
}

const (
	DefaultFile      = "game.json"
	DefaultRefLocale = "en_us"
	DefaultRepoPath  = "FinalForEach/Cosmic-Reach-Localization/tree/master"
	DefaultLangPath  = "assets/base/lang"

	// NewLocaleID selects an empty translation document instead of a fetch.
	NewLocaleID = "New Locale"
)

// DefaultSelections returns the selections used before anything is saved.
func DefaultSelections() Selections {
	return Selections{File: DefaultFile, RefLocale: DefaultRefLocale}
}

// DefaultSettings returns the settings restored by "restore defaults".
func DefaultSettings() Settings {
	return Settings{RepoPath: DefaultRepoPath, LangPath: DefaultLangPath}
}

// Merge overlays the non-empty fields of s onto base.
func (s Selections) Merge(base Selections) Selections {
	if s.File != "" {
		base.File = s.File
	}
	if s.RefLocale != "" {
		base.RefLocale = s.RefLocale
	}
	if s.TranslationLocale != "" {
		base.TranslationLocale = s.TranslationLocale
	}
	return base
}

// Merge overlays the non-empty fields of s onto base.
func (s Settings) Merge(base Settings) Settings {
	if s.RepoPath != "" {
		base.RepoPath = s.RepoPath
	}
	if s.LangPath != "" {
		base.LangPath = s.LangPath
	}
	return base
}
