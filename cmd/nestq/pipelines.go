package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/casualjim/nestq"
	"github.com/casualjim/nestq/internal/config"
	"github.com/casualjim/nestq/pkg/geo"
	"github.com/casualjim/nestq/pkg/graph"
	"github.com/casualjim/nestq/pkg/sink"
	"github.com/casualjim/nestq/pkg/slogx"
	"github.com/casualjim/nestq/pubsub"
	"go.uber.org/multierr"
)

const (
	defaultCoordsInput  = "./input/coordinates.txt"
	defaultCoordsOutput = "./output/closest_coords.txt"
	defaultGraphsInput  = "./input/graphs.txt"
	defaultGraphsOutput = "./output/dependency_graphs.txt"

	coordinatesTopic = "coordinates"
	graphsTopic      = "graphs"
)

func runNearest(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	return runPipeline(ctx, cfg, stdout, pipelineJob[geo.Task]{
		topic:  coordinatesTopic,
		input:  cfg.InputOr(defaultCoordsInput),
		output: cfg.OutputOr(defaultCoordsOutput),
		source: func(r io.Reader) nestq.Source[geo.Task] {
			return geo.NewReader(r, cfg.CoordsPerTask)
		},
		handle: func(_ context.Context, t geo.Task, out *sink.Writer) error {
			res, err := geo.Nearest(t)
			if err != nil {
				return err
			}
			slog.Debug("writing result", slog.String("result", res.String()))
			return out.WriteRecord(res.String())
		},
	})
}

func runGraphs(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	return runPipeline(ctx, cfg, stdout, pipelineJob[graph.Graph]{
		topic:  graphsTopic,
		input:  cfg.InputOr(defaultGraphsInput),
		output: cfg.OutputOr(defaultGraphsOutput),
		source: func(r io.Reader) nestq.Source[graph.Graph] {
			return graph.NewReader(r, cfg.GraphSize)
		},
		handle: func(_ context.Context, g graph.Graph, out *sink.Writer) error {
			if !graph.Valid(g) {
				return nil
			}
			return out.WriteRecord(g.Format()...)
		},
	})
}

type pipelineJob[T any] struct {
	topic  string
	input  string
	output string
	source func(io.Reader) nestq.Source[T]
	handle func(context.Context, T, *sink.Writer) error
}

func runPipeline[T any](ctx context.Context, cfg config.Config, stdout io.Writer, job pipelineJob[T]) (err error) {
	in, err := os.Open(job.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := sink.Create(job.output)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, out.Close())
	}()

	broker, err := pubsub.Local[T](pubsub.Capacity(cfg.Capacity), pubsub.Logger(slog.Default()))
	if err != nil {
		return err
	}
	p, err := nestq.New[T](
		nestq.Topic(job.topic),
		nestq.Producers(cfg.Producers),
		nestq.Consumers(cfg.Consumers),
	)
	if err != nil {
		return err
	}

	slog.Info("starting pipeline",
		slogx.Topic(job.topic),
		slog.String("input", job.input),
		slog.String("output", job.output),
	)
	stats, runErr := p.Run(ctx, broker, job.source(in), func(ctx context.Context, v T) error {
		return job.handle(ctx, v, out)
	})
	if flushErr := out.Flush(); flushErr != nil {
		runErr = multierr.Append(runErr, flushErr)
	}

	rep := report{Stats: stats, Written: out.Records(), Output: job.output}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	if werr := rep.write(stdout, cfg.JSON); werr != nil {
		runErr = multierr.Append(runErr, werr)
	}
	return runErr
}
