// Package i18n holds the active UI language and the localized strings the
// registration sessions show to users.
package i18n

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

const DefaultLanguage = "hi"

// Supported lists the language codes the product ships, in selector order.
var Supported = []string{"hi", "en", "bn", "te", "mr", "ta", "gu", "kn", "ml", "pa", "or", "as", "ur"}

var matcher language.Matcher

func init() {
	tags := make([]language.Tag, 0, len(Supported))
	for _, code := range Supported {
		tags = append(tags, language.MustParse(code))
	}
	matcher = language.NewMatcher(tags)
}

// Match resolves any IETF tag ("en-IN", "hi_IN", "HI") to a supported code.
func Match(tag string) (string, error) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", fmt.Errorf("empty language tag")
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", tag, err)
	}
	_, idx, conf := matcher.Match(parsed)
	if conf == language.No {
		return "", fmt.Errorf("unsupported language %q", tag)
	}
	return Supported[idx], nil
}

// Locale is the process-wide language preference. It is the only state
// shared across registration sessions.
type Locale struct {
	mu        sync.RWMutex
	lang      string
	listeners []func(string)
}

// NewLocale starts at defaultLang, falling back to Hindi when it is not supported.
func NewLocale(defaultLang string) *Locale {
	lang, err := Match(defaultLang)
	if err != nil {
		lang = DefaultLanguage
	}
	return &Locale{lang: lang}
}

// Language returns the active language code.
func (l *Locale) Language() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lang
}

// Change switches the active language and notifies listeners.
func (l *Locale) Change(tag string) error {
	lang, err := Match(tag)
	if err != nil {
		return err
	}

	l.mu.Lock()
	changed := l.lang != lang
	l.lang = lang
	listeners := append([]func(string){}, l.listeners...)
	l.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(lang)
		}
	}
	return nil
}

// OnChange registers fn to be called after every effective language change.
func (l *Locale) OnChange(fn func(lang string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// T returns the message for key in the active language.
func (l *Locale) T(key string, args ...interface{}) string {
	return Message(l.Language(), key, args...)
}
