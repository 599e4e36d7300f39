// Package health provides the gateway's liveness and readiness checks.
//
// A Checker reports one component's Status. The Aggregator runs checkers
// concurrently under a deadline and folds their results into an overall
// status, which the HTTP handlers expose on /healthz, /readyz and /health.
//
// PolicyChecker is the gateway's own readiness check: it proves the
// configured token policy can still issue and verify a token.
//
//	agg := health.NewAggregator()
//	agg.Register("token_policy", health.NewPolicyChecker(codec))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{MaxHeapBytes: 512 << 20}))
//	health.Mount(router, agg)
package health
