package tokenizer

import "github.com/RishiKendai/labscan/internal/models"

var javaSpec = &langSpec{
	lang:       models.LanguageJava,
	extensions: []string{".java"},
	keywords: set(
		"abstract", "assert", "boolean", "break", "byte", "case", "catch", "char", "class", "const",
		"continue", "default", "do", "double", "else", "enum", "extends", "final", "finally", "float",
		"for", "goto", "if", "implements", "import", "instanceof", "int", "interface", "long", "native",
		"new", "package", "private", "protected", "public", "return", "short", "static", "strictfp", "super",
		"switch", "synchronized", "this", "throw", "throws", "transient", "try", "void", "volatile", "while",
		"true", "false", "null", "var", "record", "yield", "sealed", "permits",
	),
	punct: []string{
		">>>=",
		"<<=", ">>=", ">>>", "...",
		"->", "::", "++", "--", "&&", "||", "==", "!=", "<=", ">=",
		"+=", "-=", "*=", "/=", "&=", "|=", "^=", "%=", "<<", ">>",
		"(", ")", "[", "]", "{", "}", ";", ",", ".", "@",
		"=", ">", "<", "!", "~", "?", ":", "+", "-", "*", "/", "&", "|", "^", "%",
	},
	structural:   set("(", ")", "[", "]", "{", "}", ";", ",", "."),
	lineComment:  "//",
	blockComment: true,
	dollarIdent:  true,
	literal:      javaLiteral,
}

func javaLiteral(s *scanner) (bool, error) {
	m := s.mark()
	switch {
	case s.hasPrefix(`"""`):
		s.skip(3)
		if err := s.quoted(m, `"""`, true, true, "text block"); err != nil {
			return false, err
		}
	case s.peek(0) == '"':
		s.advance()
		if err := s.quoted(m, `"`, true, false, "string literal"); err != nil {
			return false, err
		}
	case s.peek(0) == '\'':
		s.advance()
		if err := s.quoted(m, `'`, true, false, "character literal"); err != nil {
			return false, err
		}
	default:
		return false, nil
	}
	s.emit(models.KindLiteral, m)
	return true, nil
}
