package domain

import "strings"

type Language string

const (
	LanguagePidgin  Language = "pidgin"
	LanguageSwahili Language = "swahili"

	DefaultLanguage = LanguagePidgin
)

// ParseLanguage normalizes a client-supplied language tag. An empty tag
// selects the default language.
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultLanguage, nil
	case LanguagePidgin:
		return LanguagePidgin, nil
	case LanguageSwahili:
		return LanguageSwahili, nil
	default:
		return "", ErrInvalidLanguage
	}
}
