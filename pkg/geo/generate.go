package geo

import (
	"bufio"
	"io"
	"math/rand/v2"
	"strconv"
)

// MaxCoordinate bounds generated coordinates: every value lies in [0, MaxCoordinate).
const MaxCoordinate = 100.0

// Generate writes tasks random tasks of candidates candidate points each, in the format Reader parses.
func Generate(w io.Writer, tasks, candidates int, rng *rand.Rand) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	for range tasks {
		for range candidates + 1 {
			buf = strconv.AppendFloat(buf[:0], rng.Float64()*MaxCoordinate, 'f', -1, 64)
			buf = append(buf, ", "...)
			buf = strconv.AppendFloat(buf, rng.Float64()*MaxCoordinate, 'f', -1, 64)
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
