package compiler

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals and identifiers
	TokenIdent
	TokenInt
	TokenString

	// Keywords
	TokenLet
	TokenFn
	TokenReturn

	// Operators and delimiters
	TokenPlus
	TokenMinus
	TokenStar
	TokenAssign
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenSemicolon
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenIdent:     "identifier",
	TokenInt:       "integer",
	TokenString:    "string",
	TokenLet:       "'let'",
	TokenFn:        "'fn'",
	TokenReturn:    "'return'",
	TokenPlus:      "'+'",
	TokenMinus:     "'-'",
	TokenStar:      "'*'",
	TokenAssign:    "'='",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenComma:     "','",
	TokenSemicolon: "';'",
}

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int // 1-based
	Col     int // 1-based
}

var keywords = map[string]TokenType{
	"let":    TokenLet,
	"fn":     TokenFn,
	"return": TokenReturn,
}

// lookupIdent returns the keyword token type for an identifier, or TokenIdent.
func lookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return TokenIdent
}
