package graph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTruncated is returned when the input ends in the middle of a graph.
var ErrTruncated = fmt.Errorf("graph: truncated graph: %w", io.ErrUnexpectedEOF)

// ErrDuplicateNode is returned when one graph lists the same node on two adjacency lines.
var ErrDuplicateNode = errors.New("graph: duplicate node")

// Reader parses graphs written by Format: a fixed number of adjacency lines per graph, graphs separated by
// blank lines.
//
// Reader is not safe for concurrent use.
type Reader struct {
	scanner *bufio.Scanner
	size    int
	line    int
}

func NewReader(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultSize
	}
	return &Reader{scanner: bufio.NewScanner(r), size: size}
}

// Next returns the next graph, or io.EOF once the input is exhausted. A node listed twice within one graph is
// rejected with ErrDuplicateNode.
func (r *Reader) Next(ctx context.Context) (Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := make(Graph, r.size)
	for seen := 0; seen < r.size; {
		text, err := r.nextLine()
		if errors.Is(err, io.EOF) {
			if seen == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("line %d: %w", r.line, ErrTruncated)
		}
		if err != nil {
			return nil, err
		}
		if text == "" {
			if seen == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: blank line after %d of %d nodes: %w", r.line, seen, r.size, ErrTruncated)
		}

		node, targets, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if _, dup := g[node]; dup {
			return nil, fmt.Errorf("line %d: node %d: %w", r.line, node, ErrDuplicateNode)
		}
		g[node] = targets
		seen++
	}
	return g, nil
}

func (r *Reader) nextLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	r.line++
	return strings.TrimSpace(r.scanner.Text()), nil
}

// ParseLine parses "node, target, target...".
func ParseLine(s string) (int, []int, error) {
	fields := strings.Split(s, ",")
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, nil, fmt.Errorf("graph: line %q: %w", s, err)
		}
		values = append(values, v)
	}
	return values[0], values[1:], nil
}
