// Package tokenizer turns source files into position-tagged token sequences.
//
// Whitespace, comments and (for C/C++) preprocessor directives are dropped. Token spelling is kept verbatim;
// NormalizedText decides which spellings take part in token equality when two submissions are matched.
package tokenizer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
)

// Tokenizer converts one source file of a fixed language into tokens
type Tokenizer interface {
	Language() models.Language
	// Accepts reports whether the file at path belongs to the tokenizer's language
	Accepts(path string) bool
	// Tokenize fails only with *apperr.MalformedSourceError
	Tokenize(path string, src []byte) ([]models.Token, error)
}

var registry = map[models.Language]*langSpec{
	models.LanguageJava:    javaSpec,
	models.LanguageCpp:     cppSpec,
	models.LanguagePython3: pythonSpec,
}

// For returns the tokenizer of lang
func For(lang models.Language) (Tokenizer, error) {
	spec, ok := registry[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnsupportedLanguage, lang)
	}
	return &lexer{spec: spec}, nil
}

type lexer struct {
	spec *langSpec
}

func (l *lexer) Language() models.Language {
	return l.spec.lang
}

func (l *lexer) Accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.spec.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (l *lexer) Tokenize(path string, src []byte) ([]models.Token, error) {
	s := newScanner(l.spec, path, src)
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.tokens, nil
}

// NormalizedText returns the spelling of t that takes part in token equality under mode
func NormalizedText(t models.Token, mode models.Normalization) string {
	switch t.Kind {
	case models.KindIdentifier:
		if mode == models.NormalizeNone {
			return t.Text
		}
		return ""
	case models.KindLiteral:
		if mode == models.NormalizeAll {
			return ""
		}
		return t.Text
	default:
		return t.Text
	}
}
