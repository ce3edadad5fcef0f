// Package query reads conjunctive selection queries. A query is a
// conjunction of independent predicates, and each predicate is known to the
// optimizer only by its selectivity.
package query

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformedQuery is returned when a query line is not a list of numbers.
var ErrMalformedQuery = errors.New("malformed query")

// Query is the conjunction of predicates with the given selectivities, in
// the order they were written.
type Query struct {
	// Line is the 1-based line the query was read from, or 0.
	Line          int
	Selectivities []float64
}

// Len returns the number of predicates in the query.
func (q Query) Len() int {
	return len(q.Selectivities)
}

// String returns the query in the form it is read.
func (q Query) String() string {
	parts := make([]string, len(q.Selectivities))
	for i, s := range q.Selectivities {
		parts[i] = strconv.FormatFloat(s, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Parse reads the selectivities on one line. A line holding only blanks or
// a comment yields an empty query.
func Parse(line string) (Query, error) {
	l := newLexer(line)
	var q Query
	for !l.atEnd() {
		v, err := l.eatNumber()
		if err != nil {
			return Query{}, err
		}
		q.Selectivities = append(q.Selectivities, v)
	}
	if l.err != nil {
		return Query{}, l.err
	}
	return q, nil
}

// Read reads one query per line, skipping blank and comment lines.
func Read(r io.Reader) ([]Query, error) {
	var queries []Query
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		q, err := Parse(scanner.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if q.Len() == 0 {
			continue
		}
		q.Line = lineNo
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading queries")
	}
	return queries, nil
}

// ReadFile reads the queries stored in the file at path.
func ReadFile(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening query file")
	}
	defer f.Close()

	queries, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return queries, nil
}

// Selectivities returns the selectivities of every query, in order.
func Selectivities(queries []Query) [][]float64 {
	out := make([][]float64, len(queries))
	for i, q := range queries {
		out[i] = q.Selectivities
	}
	return out
}
