package utils

import (
	"context"
	"sync"

	"localeditor/ctxkeys"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// DefaultLanguage is used when the request carries no supported language.
const DefaultLanguage = "en"

var (
	i18nBundle *i18n.Bundle
	// Кеш локализаторов по языку
	localizerCache = make(map[string]*i18n.Localizer)
	localizerMutex sync.RWMutex
	bundleMutex    sync.RWMutex
)

// SetI18nBundle устанавливает глобальный bundle для локализации
func SetI18nBundle(bundle *i18n.Bundle) {
	bundleMutex.Lock()
	i18nBundle = bundle
	bundleMutex.Unlock()

	// Очищаем кеш при установке нового bundle
	localizerMutex.Lock()
	localizerCache = make(map[string]*i18n.Localizer)
	localizerMutex.Unlock()
}

// GetI18nBundle возвращает глобальный bundle для локализации
func GetI18nBundle() *i18n.Bundle {
	bundleMutex.RLock()
	defer bundleMutex.RUnlock()
	return i18nBundle
}

// getLocalizer возвращает закешированный локализатор или создает новый
func getLocalizer(lang string) *i18n.Localizer {
	bundle := GetI18nBundle()
	if bundle == nil {
		return nil
	}

	localizerMutex.RLock()
	if localizer, ok := localizerCache[lang]; ok {
		localizerMutex.RUnlock()
		return localizer
	}
	localizerMutex.RUnlock()

	localizerMutex.Lock()
	defer localizerMutex.Unlock()

	if localizer, ok := localizerCache[lang]; ok {
		return localizer
	}

	langTag, err := language.Parse(lang)
	if err != nil {
		langTag = language.English
	}

	localizer := i18n.NewLocalizer(bundle, langTag.String())
	localizerCache[lang] = localizer

	return localizer
}

// TemplateData представляет данные для подстановки в шаблон локализации
type TemplateData map[string]interface{}

// T returns the message for messageID in the request language. Missing
// bundles or messages fall back to the message ID itself.
func T(ctx context.Context, messageID string, data ...TemplateData) string {
	lang := ctxkeys.GetLanguage(ctx)
	if lang == "" {
		lang = DefaultLanguage
	}

	localizer := getLocalizer(lang)
	if localizer == nil {
		Logger.Warn("No localizer available",
			zap.String("messageID", messageID),
			zap.String("language", lang),
		)
		return messageID
	}

	config := &i18n.LocalizeConfig{
		MessageID: messageID,
	}

	if len(data) > 0 {
		config.TemplateData = data[0]
	}

	msg, err := localizer.Localize(config)
	if err != nil {
		Logger.Error("Failed to localize message",
			zap.String("messageID", messageID),
			zap.Error(err),
		)
		return messageID
	}

	return msg
}
