package query

import (
	"strconv"
	"strings"
	"text/scanner"

	"github.com/cockroachdb/errors"
)

// lexer splits one query line into selectivity literals. A '#' ends the
// line.
type lexer struct {
	scanner  scanner.Scanner
	token    rune
	tokenVal string
	// joined is set when the current token starts right where the previous
	// one ended.
	joined bool
	end    int
	err    error
}

func newLexer(input string) *lexer {
	l := &lexer{end: -1}
	l.scanner.Init(strings.NewReader(input))
	l.scanner.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	l.scanner.Whitespace = 1<<'\t' | 1<<'\r' | 1<<' '
	l.scanner.Error = func(s *scanner.Scanner, msg string) {
		if l.err == nil {
			l.err = errors.Wrapf(ErrMalformedQuery, "column %d: %s", s.Pos().Column, msg)
		}
	}
	l.nextToken()
	return l
}

func (l *lexer) nextToken() {
	l.token = l.scanner.Scan()
	l.tokenVal = l.scanner.TokenText()
	l.joined = l.scanner.Position.Offset == l.end
	l.end = l.scanner.Pos().Offset
}

// atEnd reports whether the rest of the line holds no more literals.
func (l *lexer) atEnd() bool {
	return l.token == scanner.EOF || l.token == '#' || l.token == '\n'
}

func (l *lexer) matchNumber() bool {
	return l.token == scanner.Float || l.token == scanner.Int
}

// eatNumber consumes an optionally signed numeric literal.
func (l *lexer) eatNumber() (float64, error) {
	if l.joined {
		return 0, l.syntaxError("missing separator before %q", l.tokenVal)
	}
	sign := ""
	if l.token == '-' || l.token == '+' {
		sign = l.tokenVal
		l.nextToken()
		if !l.joined || !l.matchNumber() {
			return 0, l.syntaxError("dangling sign %q", sign)
		}
	}
	if !l.matchNumber() {
		return 0, l.syntaxError("unexpected %q", l.tokenVal)
	}
	v, err := strconv.ParseFloat(sign+l.tokenVal, 64)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "column %d", l.scanner.Position.Column), ErrMalformedQuery)
	}
	l.nextToken()
	return v, nil
}

func (l *lexer) syntaxError(format string, args ...interface{}) error {
	if l.err != nil {
		return l.err
	}
	return errors.Wrapf(ErrMalformedQuery, "column %d: "+format,
		append([]interface{}{l.scanner.Position.Column}, args...)...)
}
