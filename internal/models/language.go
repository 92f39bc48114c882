package models

import (
	"fmt"
	"strings"

	"github.com/RishiKendai/labscan/internal/apperr"
)

// Language identifies the source language of a lab
type Language string

const (
	LanguageJava    Language = "java"
	LanguageCpp     Language = "cpp"
	LanguagePython3 Language = "python3"
)

// ParseLanguage accepts the canonical names and the aliases used by the lab service
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "java":
		return LanguageJava, nil
	case "c", "cpp", "c++", "cxx", "c/c++":
		return LanguageCpp, nil
	case "python3", "python", "py", "py3":
		return LanguagePython3, nil
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedLanguage, s)
	}
}

func (l Language) String() string {
	return string(l)
}
