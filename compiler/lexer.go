// Package compiler implements the Fusabi frontend: a lexer, parser, and
// bytecode generator turning script source into a bytecode.Chunk.
package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error is a compilation failure with a source position.
type Error struct {
	Msg  string
	Line int
	Col  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// SourcePosition returns the 1-based line and column of the failure.
func (e *Error) SourcePosition() (line, col int) {
	return e.Line, e.Col
}

func errorAt(line, col int, format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
}

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Fusabi syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Fusabi source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespaceAndComments()

	tok := Token{Line: l.line, Col: l.col}

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		return tok, nil

	case l.ch == '+':
		tok.Type, tok.Literal = TokenPlus, "+"
	case l.ch == '-':
		tok.Type, tok.Literal = TokenMinus, "-"
	case l.ch == '*':
		tok.Type, tok.Literal = TokenStar, "*"
	case l.ch == '=':
		tok.Type, tok.Literal = TokenAssign, "="
	case l.ch == '(':
		tok.Type, tok.Literal = TokenLParen, "("
	case l.ch == ')':
		tok.Type, tok.Literal = TokenRParen, ")"
	case l.ch == '{':
		tok.Type, tok.Literal = TokenLBrace, "{"
	case l.ch == '}':
		tok.Type, tok.Literal = TokenRBrace, "}"
	case l.ch == ',':
		tok.Type, tok.Literal = TokenComma, ","
	case l.ch == ';':
		tok.Type, tok.Literal = TokenSemicolon, ";"

	case l.ch == '"':
		lit, err := l.readString()
		if err != nil {
			return tok, err
		}
		tok.Type, tok.Literal = TokenString, lit
		return tok, nil

	case unicode.IsDigit(l.ch):
		tok.Type, tok.Literal = TokenInt, l.readNumber()
		return tok, nil

	case isIdentStart(l.ch):
		lit := l.readIdentifier()
		tok.Type, tok.Literal = lookupIdent(lit), lit
		return tok, nil

	default:
		return tok, errorAt(l.line, l.col, "unexpected character %q", l.ch)
	}

	l.readChar()
	return tok, nil
}

// Tokenize scans the whole input.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

// readString consumes a double-quoted string literal, processing escapes.
func (l *Lexer) readString() (string, error) {
	startLine, startCol := l.line, l.col
	var sb strings.Builder
	l.readChar() // consume opening quote
	for {
		switch l.ch {
		case 0, '\n':
			return "", errorAt(startLine, startCol, "unterminated string literal")
		case '"':
			l.readChar() // consume closing quote
			return sb.String(), nil
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				return "", errorAt(l.line, l.col, "invalid escape sequence '\\%c'", l.ch)
			}
			l.readChar()
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || unicode.IsDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}
