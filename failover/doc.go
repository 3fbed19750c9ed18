// Package failover sequences ordered provider attempts for search and
// analysis operations.
//
// A [Sequencer] holds an ordered list of [Attempt]s. When asked for a
// stream it tries each provider in turn: a provider that fails to open,
// errors on its first item, closes without producing anything, or does
// not deliver within the attempt timeout is skipped and the next one is
// tried. The first provider to deliver a usable item wins and its whole
// stream is piped through, including any mid-stream errors.
//
// Exhaustion is not an error. When no provider produces a result the
// output stream carries a single synthetic item whose payload says
// "no provider available", so downstream consumers handle the empty
// case the same way they handle any other result.
//
//	seq := failover.New(logger, []failover.Attempt{
//	    {Name: "primary", Open: primary.Search},
//	    {Name: "fallback", Open: fallback.Search},
//	})
//	for item := range seq.Stream(ctx) {
//	    // consume results
//	}
package failover
