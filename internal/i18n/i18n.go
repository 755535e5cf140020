// Package i18n provides internationalization support for user-facing notices
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// BerneseGermanMessages is a Swiss Dialect spoken in the Canton of Bern
	BerneseGermanMessages = "ch_be"
)

var (
	supportedCodes = []string{DefaultLanguage, BerneseGermanMessages}
	matcher        = language.NewMatcher([]language.Tag{
		language.English,
		language.MustParse("gsw-CH"),
	})
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language
func NewLocalizer(lang string) *Localizer {
	return &Localizer{
		language: lang,
		messages: getMessages(lang),
	}
}

// Language returns the language code the localizer was built for.
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	// Fallback to English if key not found in current language
	if l.language != DefaultLanguage {
		if fallbackMessage, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallbackMessage, args...)
			}
			return fallbackMessage
		}
	}

	return key
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return append([]string(nil), supportedCodes...)
}

// MatchLanguage maps a configured language (a supported code or any BCP 47
// tag such as "en-GB" or "gsw") onto a supported code.
func MatchLanguage(input string) string {
	input = strings.TrimSpace(input)
	for _, code := range supportedCodes {
		if strings.EqualFold(input, code) {
			return code
		}
	}

	tag, err := language.Parse(strings.ReplaceAll(input, "_", "-"))
	if err != nil {
		return DefaultLanguage
	}

	_, index, confidence := matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(supportedCodes) {
		return DefaultLanguage
	}
	return supportedCodes[index]
}

// getMessages returns the message map for a given language
func getMessages(lang string) map[string]string {
	switch lang {
	case DefaultLanguage:
		return englishMessages
	case BerneseGermanMessages:
		return berneseGermanMessages
	default:
		return englishMessages
	}
}
