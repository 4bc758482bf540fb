package geo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTruncated is returned when the input ends in the middle of a task.
var ErrTruncated = fmt.Errorf("geo: truncated task: %w", io.ErrUnexpectedEOF)

// Reader parses coordinate tasks. Each task is one query line followed by a fixed number of candidate lines,
// every line holding "x, y". Tasks are separated by blank lines.
//
// Reader is not safe for concurrent use.
type Reader struct {
	scanner    *bufio.Scanner
	candidates int
	line       int
}

// NewReader reads tasks with the given number of candidates from r.
func NewReader(r io.Reader, candidates int) *Reader {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	return &Reader{
		scanner:    bufio.NewScanner(r),
		candidates: candidates,
	}
}

// Next returns the next task, or io.EOF once the input is exhausted.
func (r *Reader) Next(ctx context.Context) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	var (
		task Task
		seen int
	)
	task.Candidates = make([]Point, 0, r.candidates)
	for seen < r.candidates+1 {
		text, err := r.nextLine()
		if errors.Is(err, io.EOF) {
			if seen == 0 {
				return Task{}, io.EOF
			}
			return Task{}, fmt.Errorf("line %d: %w", r.line, ErrTruncated)
		}
		if err != nil {
			return Task{}, err
		}
		if text == "" {
			if seen == 0 {
				continue
			}
			return Task{}, fmt.Errorf("line %d: blank line after %d of %d points: %w", r.line, seen, r.candidates+1, ErrTruncated)
		}

		p, err := ParsePoint(text)
		if err != nil {
			return Task{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		if seen == 0 {
			task.Point = p
		} else {
			task.Candidates = append(task.Candidates, p)
		}
		seen++
	}
	return task, nil
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

// ParsePoint parses "x, y".
func ParsePoint(s string) (Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("geo: point %q: missing comma", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geo: point %q: x: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Point{}, fmt.Errorf("geo: point %q: y: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}
