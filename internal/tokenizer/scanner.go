package tokenizer

import (
	"unicode"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
)

// langSpec is the table a scanner runs on
type langSpec struct {
	lang       models.Language
	extensions []string
	keywords   map[string]struct{}
	// punct is sorted longest first
	punct        []string
	structural   map[string]struct{}
	dropped      map[string]struct{}
	lineComment  string
	blockComment bool
	preprocessor bool
	dollarIdent  bool
	digitQuote   bool
	// literal scans a string or character literal at the current position.
	// It returns false when the input there is not a literal.
	literal func(s *scanner) (bool, error)
}

type scanner struct {
	spec   *langSpec
	path   string
	src    []rune
	pos    int
	line   int
	col    int
	bol    bool
	tokens []models.Token
}

func newScanner(spec *langSpec, path string, src []byte) *scanner {
	return &scanner{
		spec: spec,
		path: path,
		src:  []rune(string(src)),
		line: 1,
		col:  1,
		bol:  true,
	}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek(off int) rune {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) hasPrefix(p string) bool {
	i := 0
	for _, r := range p {
		if s.peek(i) != r {
			return false
		}
		i++
	}
	return true
}

func (s *scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
		s.bol = true
	} else {
		s.col++
	}
	s.pos++
}

func (s *scanner) skip(n int) {
	for i := 0; i < n && !s.eof(); i++ {
		s.advance()
	}
}

type mark struct {
	pos, line, col int
}

func (s *scanner) mark() mark {
	return mark{pos: s.pos, line: s.line, col: s.col}
}

func (s *scanner) emit(kind models.TokenKind, m mark) {
	text := string(s.src[m.pos:s.pos])
	s.bol = false
	if _, ok := s.spec.dropped[text]; ok && kind != models.KindLiteral {
		return
	}
	s.tokens = append(s.tokens, models.Token{
		Kind:      kind,
		Text:      text,
		File:      s.path,
		Line:      m.line,
		Column:    m.col,
		EndLine:   s.line,
		EndColumn: s.col,
		Length:    s.pos - m.pos,
	})
}

func (s *scanner) malformed(m mark, reason string) error {
	return &apperr.MalformedSourceError{Path: s.path, Line: m.line, Column: m.col, Reason: reason}
}

func (s *scanner) run() error {
	for !s.eof() {
		r := s.peek(0)
		switch {
		case unicode.IsSpace(r):
			s.advance()
		case s.spec.lineComment != "" && s.hasPrefix(s.spec.lineComment):
			s.skipLine()
		case s.spec.blockComment && s.hasPrefix("/*"):
			if err := s.skipBlockComment(); err != nil {
				return err
			}
		case s.spec.preprocessor && r == '#' && s.bol:
			if err := s.skipDirective(); err != nil {
				return err
			}
		default:
			ok, err := s.spec.literal(s)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			s.scanToken(r)
		}
	}
	return nil
}

func (s *scanner) scanToken(r rune) {
	m := s.mark()
	switch {
	case isDigit(r) || (r == '.' && isDigit(s.peek(1))):
		s.scanNumber()
		s.emit(models.KindLiteral, m)
	case s.isIdentStart(r):
		for !s.eof() && s.isIdentPart(s.peek(0)) {
			s.advance()
		}
		kind := models.KindIdentifier
		if _, ok := s.spec.keywords[string(s.src[m.pos:s.pos])]; ok {
			kind = models.KindKeyword
		}
		s.emit(kind, m)
	default:
		p := s.matchPunct()
		s.skip(len([]rune(p)))
		kind := models.KindOperator
		if _, ok := s.spec.structural[p]; ok {
			kind = models.KindStructural
		}
		s.emit(kind, m)
	}
}

// matchPunct returns the longest punctuator at the current position, or the current rune
func (s *scanner) matchPunct() string {
	for _, p := range s.spec.punct {
		if s.hasPrefix(p) {
			return p
		}
	}
	return string(s.peek(0))
}

func (s *scanner) scanNumber() {
	for !s.eof() {
		r := s.peek(0)
		switch {
		case isDigit(r) || unicode.IsLetter(r) || r == '_' || r == '.':
			s.advance()
		case (r == '+' || r == '-') && s.pos > 0 && isExponent(s.src[s.pos-1]) && !isHexLiteral(s.src, s.pos):
			s.advance()
		case r == '\'' && s.spec.digitQuote && isDigit(s.peek(1)):
			s.advance()
		default:
			return
		}
	}
}

func (s *scanner) isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || (r == '$' && s.spec.dollarIdent)
}

func (s *scanner) isIdentPart(r rune) bool {
	return s.isIdentStart(r) || unicode.IsDigit(r)
}

func (s *scanner) skipLine() {
	for !s.eof() && s.peek(0) != '\n' {
		s.advance()
	}
}

func (s *scanner) skipBlockComment() error {
	m := s.mark()
	s.skip(2)
	for !s.eof() {
		if s.hasPrefix("*/") {
			s.skip(2)
			return nil
		}
		s.advance()
	}
	return s.malformed(m, "unterminated block comment")
}

// skipDirective drops a preprocessor line including backslash continuations
func (s *scanner) skipDirective() error {
	for !s.eof() {
		r := s.peek(0)
		if r == '\\' && s.peek(1) == '\n' {
			s.skip(2)
			continue
		}
		if r == '\n' {
			return nil
		}
		if s.hasPrefix("/*") {
			// a block comment may carry the directive across lines
			if err := s.skipBlockComment(); err != nil {
				return err
			}
			continue
		}
		s.advance()
	}
	return nil
}

// quoted consumes the body of a literal whose opening delimiter was already consumed.
// It stops after the closing delimiter.
func (s *scanner) quoted(m mark, closing string, escapes, multiline bool, what string) error {
	for {
		if s.eof() {
			return s.malformed(m, "unterminated "+what)
		}
		if s.hasPrefix(closing) {
			s.skip(len([]rune(closing)))
			return nil
		}
		r := s.peek(0)
		if escapes && r == '\\' {
			s.skip(2)
			continue
		}
		if r == '\n' && !multiline {
			return s.malformed(m, "unterminated "+what)
		}
		s.advance()
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isExponent(r rune) bool {
	return r == 'e' || r == 'E' || r == 'p' || r == 'P'
}

// isHexLiteral reports whether the number ending before pos started with 0x,
// where e/E is a digit rather than an exponent marker
func isHexLiteral(src []rune, pos int) bool {
	start := pos
	for start > 0 {
		r := src[start-1]
		if !(isDigit(r) || unicode.IsLetter(r) || r == '_' || r == '.' || r == '\'') {
			break
		}
		start--
	}
	if pos-start < 2 || src[start] != '0' {
		return false
	}
	x := src[start+1]
	return (x == 'x' || x == 'X') && src[pos-1] != 'p' && src[pos-1] != 'P'
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
