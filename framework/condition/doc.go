// Package condition implements the load conditions that gate provider
// eligibility.
//
// A condition is a small expression tree evaluated against a key-value
// Environment each time a provider is considered for a request:
//
//	condition.All(
//	    condition.Property("cache.enabled", "true"),
//	    condition.Any(condition.Profile("local"), condition.Profile("testing")),
//	)
//
// All and Any short-circuit like && and ||. A Batch evaluates every stage and
// returns a Report with each verdict, which is what diagnostics want. Constant
// and Single leaves reject composition with ErrImmutable.
package condition
