package tokenizer

import (
	"strings"

	"github.com/RishiKendai/labscan/internal/models"
)

var pythonSpec = &langSpec{
	lang:       models.LanguagePython3,
	extensions: []string{".py"},
	keywords: set(
		"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class",
		"continue", "def", "del", "elif", "else", "except", "finally", "for", "from", "global",
		"if", "import", "in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise",
		"return", "try", "while", "with", "yield",
	),
	punct: []string{
		"**=", "//=", ">>=", "<<=", "...",
		"->", ":=", "**", "//", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
		"&=", "|=", "^=", "@=", ">>", "<<",
		"(", ")", "[", "]", "{", "}", ";", ",", ".", ":",
		"=", ">", "<", "!", "~", "+", "-", "*", "/", "%", "@", "&", "|", "^",
	},
	structural: set("(", ")", "[", "]", "{", "}", ";", ",", ".", ":"),
	// statement separators and explicit line joins carry no structure beyond a newline
	dropped:     set(";", "\\"),
	lineComment: "#",
	literal:     pythonLiteral,
}

func pythonLiteral(s *scanner) (bool, error) {
	m := s.mark()
	n := 0
	for n < 2 && strings.ContainsRune("rRbBuUfF", s.peek(n)) {
		n++
	}
	q := s.peek(n)
	if q != '"' && q != '\'' {
		return false, nil
	}
	if n > 0 && !isStringPrefix(s.src[s.pos:s.pos+n]) {
		return false, nil
	}
	s.skip(n)

	triple := strings.Repeat(string(q), 3)
	if s.hasPrefix(triple) {
		s.skip(3)
		if err := s.quoted(m, triple, true, true, "triple-quoted string"); err != nil {
			return false, err
		}
	} else {
		s.advance()
		if err := s.quoted(m, string(q), true, false, "string literal"); err != nil {
			return false, err
		}
	}
	s.emit(models.KindLiteral, m)
	return true, nil
}

func isStringPrefix(p []rune) bool {
	switch strings.ToLower(string(p)) {
	case "r", "b", "u", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}
