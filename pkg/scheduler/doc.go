// Package scheduler drives a set of PagingStates through repeated batched
// fetches until every one reaches a terminal cursor.
//
// A single coordinator goroutine owns all mutable state — the batcher, the
// live-state index, and spawn bookkeeping — and is reached only through the
// channels Start returns and the completions the executor posts back to it.
// Fetches themselves run concurrently, up to EngineConfig's MaxConcurrency,
// but their outcomes are folded in one at a time.
//
// Example usage:
//
//	cfg := scheduler.NewByEntityType(parser.SingleStateParser(itemsOf, cursorOf, nil)).
//		WithConcurrency(4).
//		WithBatcher(false, 1, nil, nil)
//	cfg.Registry.Register("invoice", fetchInvoicePage)
//
//	sched := scheduler.New(cfg)
//	input, output := sched.Start(ctx, nil)
//	input <- pagestate.New("invoice", customerID)
//	close(input)
//	for state := range output {
//		// state.Items, state.Exception
//	}
package scheduler
