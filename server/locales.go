package server

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"localeditor/locales"
	"localeditor/utils"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// InitI18n инициализирует систему интернационализации. The embedded
// bundles are used unless LOCALES_DIR points at a build directory on disk.
func InitI18n() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	var (
		source fs.FS
		root   string
	)
	if dir := utils.GetEnv("LOCALES_DIR", ""); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			utils.Logger.Warn("Locales directory not found, using embedded bundles",
				zap.String("path", dir), zap.Error(err))
			source, root = locales.Build, locales.BuildDir
		} else {
			source, root = os.DirFS(dir), "."
		}
	} else {
		source, root = locales.Build, locales.BuildDir
	}

	if err := LoadTranslations(bundle, source, root); err != nil {
		utils.Logger.Error("Failed to load translations", zap.Error(err))
		return nil, err
	}

	utils.Logger.Info("Translations loaded successfully",
		zap.Int("languages", len(bundle.LanguageTags())))
	return bundle, nil
}

// LoadTranslations загружает все JSON файлы локализации из fsys
func LoadTranslations(bundle *i18n.Bundle, fsys fs.FS, root string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		utils.Logger.Debug("Loading translation file", zap.String("file", p))
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		// go-i18n takes the language from the file name
		if _, err := bundle.ParseMessageFileBytes(data, path.Base(p)); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	})
}

// SupportedLanguages returns the bundle's languages, default first.
func SupportedLanguages(bundle *i18n.Bundle) []language.Tag {
	if bundle == nil {
		return []language.Tag{language.English}
	}
	return bundle.LanguageTags()
}
