// Package registry resolves the latest published version of many packages
// concurrently.
//
// A [Resolver] issues one query per distinct normalized name. Queries run
// in parallel up to [Options.Concurrency], optionally throttled to
// [Options.RateLimit] requests per second. Each query retries transient
// failures with exponential backoff and is bounded by
// [Options.QueryTimeout]; the whole call is bounded by [Options.Timeout].
//
//	r := registry.New(pypi.NewClient("", 10*time.Second), registry.Options{})
//	results := r.Resolve(ctx, []string{"django", "requests"})
//	for name, res := range results {
//	    fmt.Println(name, res.Latest, res.Err)
//	}
//
// Resolve never drops a name: every requested name appears in the result
// map exactly once. Names left unresolved when the aggregate deadline
// passes, or when the caller cancels, are reported with [ErrTimeout].
package registry
