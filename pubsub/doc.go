// Package pubsub routes typed values through named topics, each backed by one bounded blocking queue.
//
// Every Subscribe starts one worker goroutine that takes values off the topic's queue, so N subscriptions on
// a topic are N competing consumers: each value reaches exactly one handler. Publishing blocks while the
// topic is full. Stopping a topic is one-way; consumers drain what is buffered and then exit.
//
// Interface hierarchy:
//   - Broker: owns the name → Topic mapping and tracks its subscription workers
//     └── Topic: one bounded queue with publish, subscribe and stop operations
//     └── Subscription: a running consumer worker
//     └── Producer: a counted publisher; the topic stops when the last one is done
//
// Several producers feeding one topic should each register through Producer and call Done when their input
// is exhausted. StopPublishing stops the topic unconditionally and would cut off producers that are still
// running.
//
// Example usage:
//
//	b, err := pubsub.Local[geo.Task](pubsub.Capacity(25))
//	if err != nil {
//	    return err
//	}
//	sub, err := b.Subscribe(ctx, "coords", func(ctx context.Context, t geo.Task) error {
//	    res, err := geo.Nearest(t)
//	    if err != nil {
//	        return err
//	    }
//	    return out.WriteRecord(res.String())
//	})
//	if err != nil {
//	    return err
//	}
//
//	p, _ := b.Producer(ctx, "coords")
//	for _, t := range tasks {
//	    if err := p.Publish(ctx, t); err != nil {
//	        break
//	    }
//	}
//	p.Done()
//
//	<-sub.Done()
//	return b.Wait(ctx)
package pubsub
