package telegram

import (
	"io"
	"strings"
)

type TokenKind uint8

const (
	// Comment is the "/" header line identifying the meter.
	Comment TokenKind = iota + 1
	// Code is an OBIS register identifier such as 1-0:1.8.1.
	Code
	// Value is a parenthesized payload with the parentheses stripped.
	Value
)

func (k TokenKind) String() string {
	switch k {
	case Comment:
		return "comment"
	case Code:
		return "code"
	case Value:
		return "value"
	default:
		return "invalid"
	}
}

type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

// Lexer tokenizes one telegram lazily. Whitespace and "!" footer lines produce
// no tokens. A lexical error consumes the offending byte, so scanning can
// continue after it.
type Lexer struct {
	input []byte
	pos   int

	peeked  bool
	peekTok Token
	peekErr error
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input}
}

// Reset restarts the token sequence from the first byte.
func (l *Lexer) Reset() {
	l.pos = 0
	l.peeked = false
	l.peekTok = Token{}
	l.peekErr = nil
}

// Next returns the next token, io.EOF at end of input, or a *SyntaxError.
func (l *Lexer) Next() (Token, error) {
	if l.peeked {
		l.peeked = false
		return l.peekTok, l.peekErr
	}
	return l.scan()
}

// Peek returns what Next would return without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if !l.peeked {
		l.peekTok, l.peekErr = l.scan()
		l.peeked = true
	}
	return l.peekTok, l.peekErr
}

// Tokens drains the lexer, stopping at the first error.
func (l *Lexer) Tokens() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) scan() (Token, error) {
	l.skip()
	if l.pos >= len(l.input) {
		return Token{}, io.EOF
	}

	start := l.pos
	switch c := l.input[start]; {
	case c == '/':
		end := l.lineEnd(start)
		l.pos = end
		text := strings.TrimSpace(string(l.input[start+1 : end]))
		return Token{Kind: Comment, Text: text, Offset: start}, nil

	case c == '(':
		for i := start + 1; i < len(l.input); i++ {
			if l.input[i] == ')' {
				l.pos = i + 1
				return Token{Kind: Value, Text: string(l.input[start+1 : i]), Offset: start}, nil
			}
		}

	case isDigit(c):
		if end, ok := l.matchCode(start); ok {
			l.pos = end
			return Token{Kind: Code, Text: string(l.input[start:end]), Offset: start}, nil
		}
	}

	l.pos = start + 1
	return Token{}, &SyntaxError{
		Offset: start,
		Found:  string(l.input[start:l.lineEnd(start)]),
		Err:    ErrUnexpectedToken,
	}
}

// skip advances over whitespace and "!" lines.
func (l *Lexer) skip() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r', '\f':
			l.pos++
		case '!':
			l.pos = l.lineEnd(l.pos)
		default:
			return
		}
	}
}

// matchCode matches digits '-' digits ':' digits ('.' digits)*.
func (l *Lexer) matchCode(i int) (int, bool) {
	digits := func(i int) int {
		for i < len(l.input) && isDigit(l.input[i]) {
			i++
		}
		return i
	}
	sep := func(i int, c byte) (int, bool) {
		if i >= len(l.input) || l.input[i] != c {
			return i, false
		}
		next := digits(i + 1)
		return next, next > i+1
	}

	i = digits(i)
	i, ok := sep(i, '-')
	if !ok {
		return 0, false
	}
	i, ok = sep(i, ':')
	if !ok {
		return 0, false
	}
	for {
		next, ok := sep(i, '.')
		if !ok {
			return i, true
		}
		i = next
	}
}

func (l *Lexer) lineEnd(i int) int {
	for i < len(l.input) && l.input[i] != '\n' {
		i++
	}
	return i
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
