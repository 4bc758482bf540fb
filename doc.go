/*
Package nestq pipelines batch workloads through pools of producer and consumer goroutines that meet on one
topic of a pubsub broker.

A Pipeline reads payloads from a Source, publishes them from a configurable number of producers and hands
them to a configurable number of competing consumers. Every producer registers with the topic's countdown,
so the topic stops only once the last producer has exhausted its input; the consumers then drain what is
buffered and exit.

# Basic Usage

	b, err := pubsub.Local[geo.Task](pubsub.Capacity(25))
	if err != nil {
		return err
	}

	p, err := nestq.New[geo.Task](
		nestq.Topic("coords"),
		nestq.Producers(2),
		nestq.Consumers(4),
	)
	if err != nil {
		return err
	}

	stats, err := p.Run(ctx, b, geo.NewReader(in, 100), func(ctx context.Context, t geo.Task) error {
		res, err := geo.Nearest(t)
		if err != nil {
			return err
		}
		return out.WriteRecord(res.String())
	})

# Sources

A Source yields one payload per call to Next and io.EOF when it is exhausted. The producers of a pipeline
share one source through Synchronized, so every record is read exactly once no matter how many producers
run.

# Failures

A source error aborts the producers and a handler error ends the consumer that returned it. Run reports
both, joined, after every worker has exited.
*/
package nestq
