package tokenizer

import (
	"strings"

	"github.com/RishiKendai/labscan/internal/models"
)

var cppSpec = &langSpec{
	lang:       models.LanguageCpp,
	extensions: []string{".c", ".cc", ".cpp", ".cxx", ".c++", ".h", ".hh", ".hpp", ".hxx"},
	keywords: set(
		"alignas", "alignof", "and", "and_eq", "asm", "auto", "bitand", "bitor", "bool", "break",
		"case", "catch", "char", "char8_t", "char16_t", "char32_t", "class", "compl", "concept", "const",
		"consteval", "constexpr", "constinit", "const_cast", "continue", "co_await", "co_return", "co_yield",
		"decltype", "default", "delete", "do", "double", "dynamic_cast", "else", "enum", "explicit",
		"export", "extern", "false", "float", "for", "friend", "goto", "if", "inline", "int", "long",
		"mutable", "namespace", "new", "noexcept", "not", "not_eq", "nullptr", "operator", "or", "or_eq",
		"private", "protected", "public", "register", "reinterpret_cast", "requires", "restrict", "return",
		"short", "signed", "sizeof", "static", "static_assert", "static_cast", "struct", "switch",
		"template", "this", "thread_local", "throw", "true", "try", "typedef", "typeid", "typename",
		"union", "unsigned", "using", "virtual", "void", "volatile", "wchar_t", "while", "xor", "xor_eq",
		"_Bool", "NULL",
	),
	punct: []string{
		"<=>", "<<=", ">>=", "->*", "...",
		"->", "::", "++", "--", "&&", "||", "==", "!=", "<=", ">=",
		"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", ".*", "##",
		"(", ")", "[", "]", "{", "}", ";", ",", ".",
		"=", ">", "<", "!", "~", "?", ":", "+", "-", "*", "/", "&", "|", "^", "%", "#",
	},
	structural:   set("(", ")", "[", "]", "{", "}", ";", ",", "."),
	lineComment:  "//",
	blockComment: true,
	preprocessor: true,
	digitQuote:   true,
	literal:      cppLiteral,
}

// encoding prefixes of C/C++ string and character literals, longest first
var cppPrefixes = []string{"u8R", "LR", "uR", "UR", "u8", "R", "L", "u", "U"}

func cppLiteral(s *scanner) (bool, error) {
	m := s.mark()
	prefix := ""
	for _, p := range cppPrefixes {
		if s.hasPrefix(p) {
			next := s.peek(len(p))
			if next == '"' || (next == '\'' && !strings.HasSuffix(p, "R")) {
				prefix = p
				break
			}
		}
	}
	// an identifier such as "LR" not followed by a quote is not a prefix
	if prefix == "" && s.isIdentStart(s.peek(0)) {
		return false, nil
	}
	s.skip(len(prefix))

	switch {
	case strings.HasSuffix(prefix, "R"):
		s.advance()
		var delim strings.Builder
		for !s.eof() && s.peek(0) != '(' {
			if s.peek(0) == '\n' || s.peek(0) == '"' || delim.Len() > 16 {
				return false, s.malformed(m, "invalid raw string delimiter")
			}
			delim.WriteRune(s.peek(0))
			s.advance()
		}
		if s.eof() {
			return false, s.malformed(m, "unterminated raw string literal")
		}
		s.advance()
		if err := s.quoted(m, ")"+delim.String()+`"`, false, true, "raw string literal"); err != nil {
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
