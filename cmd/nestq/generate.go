package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/casualjim/nestq/internal/config"
	"github.com/casualjim/nestq/pkg/geo"
	"github.com/casualjim/nestq/pkg/graph"
	"go.uber.org/multierr"
)

func runGenCoords(_ context.Context, cfg config.Config, stdout io.Writer) error {
	path := cfg.OutputOr(defaultCoordsInput)
	tasks := cfg.CountOr(config.DefaultCoordTasks)
	err := writeFile(path, func(w io.Writer) error {
		return geo.Generate(w, tasks, cfg.CoordsPerTask, newRand(cfg.Seed))
	})
	if err != nil {
		return err
	}
	slog.Info("generated coordinates", slog.String("path", path), slog.Int("tasks", tasks))
	_, err = fmt.Fprintf(stdout, "wrote %d coordinate tasks to %s\n", tasks, path)
	return err
}

func runGenGraphs(_ context.Context, cfg config.Config, stdout io.Writer) error {
	path := cfg.OutputOr(defaultGraphsInput)
	count := cfg.CountOr(config.DefaultGraphs)
	err := writeFile(path, func(w io.Writer) error {
		return graph.GenerateFile(w, count, cfg.GraphSize, newRand(cfg.Seed))
	})
	if err != nil {
		return err
	}
	slog.Info("generated graphs", slog.String("path", path), slog.Int("graphs", count))
	_, err = fmt.Fprintf(stdout, "wrote %d graphs to %s\n", count, path)
	return err
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return fn(f)
}
