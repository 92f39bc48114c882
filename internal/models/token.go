package models

// TokenKind is the lexical category of a token
type TokenKind uint8

const (
	KindIdentifier TokenKind = iota + 1
	KindKeyword
	KindLiteral
	KindOperator
	KindStructural
)

func (k TokenKind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindKeyword:
		return "keyword"
	case KindLiteral:
		return "literal"
	case KindOperator:
		return "operator"
	case KindStructural:
		return "structural"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of a source file.
// Lines and columns are 1-based and count runes; EndColumn is exclusive.
// Only multi-line literals have EndLine != Line.
type Token struct {
	Kind      TokenKind `json:"kind"`
	Text      string    `json:"text"`
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Column    int       `json:"column"`
	EndLine   int       `json:"endLine"`
	EndColumn int       `json:"endColumn"`
	Length    int       `json:"length"`
}

// Normalization controls which token spellings take part in token equality
type Normalization string

const (
	// NormalizeIdentifiers erases identifier spelling, literals keep theirs
	NormalizeIdentifiers Normalization = "identifiers"
	// NormalizeAll erases identifier and literal spelling
	NormalizeAll Normalization = "all"
	// NormalizeNone compares verbatim spelling
	NormalizeNone Normalization = "none"
)

// Valid reports whether n is a known normalization mode
func (n Normalization) Valid() bool {
	switch n {
	case NormalizeIdentifiers, NormalizeAll, NormalizeNone:
		return true
	}
	return false
}
