package utils

import (
	"embed"
	"encoding/json"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed i18n/*.json
var i18nFS embed.FS

var (
	bundle     *i18n.Bundle
	bundleOnce sync.Once
)

// InitI18NBundle loads the embedded message catalogs. Safe to call more than
// once.
func InitI18NBundle() {
	bundleOnce.Do(func() {
		b := i18n.NewBundle(language.Spanish)
		b.RegisterUnmarshalFunc("json", json.Unmarshal)

		for _, name := range []string{"i18n/es.json", "i18n/en.json"} {
			data, err := i18nFS.ReadFile(name)
			if err != nil {
				log.WithError(err).WithField("file", name).Error("fail to read i18n catalog")
				continue
			}
			if _, err := b.ParseMessageFileBytes(data, name); err != nil {
				log.WithError(err).WithField("file", name).Error("fail to parse i18n catalog")
			}
		}

		bundle = b
	})
}

// NewLocalizer returns a localizer for the given language preferences with
// Spanish as the final fallback.
func NewLocalizer(langs ...string) *i18n.Localizer {
	InitI18NBundle()
	langs = append(langs, "es")
	return i18n.NewLocalizer(bundle, langs...)
}

// Localize resolves a message id with template data, falling back to the id
// itself if the message is missing.
func Localize(l *i18n.Localizer, id string, data map[string]interface{}) string {
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		log.WithError(err).WithField("id", id).Warn("missing i18n message")
		return id
	}
	return msg
}
