// Package pypi provides an HTTP client for the Python Package Index JSON API.
//
// # Usage
//
//	client := pypi.NewClient(pypi.DefaultIndexURL, 10*time.Second)
//
//	rel, err := client.FetchLatest(ctx, "Django")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rel.Name, rel.Version)
//
// # Index URL
//
// The client requests <index>/<name>/json, where name is normalized per
// PEP 503. Any index exposing the same JSON layout as pypi.org can be
// used, including the fake index in [github.com/matzehuels/pypi-updater/pkg/integrations/pypi/pypitest].
//
// # Errors
//
// [FetchLatest] makes a single attempt. Transient failures are wrapped in
// [httputil.RetryableError] so callers can retry them with their own policy:
//
//   - [integrations.ErrNotFound]: the package does not exist
//   - [integrations.ErrNetwork]: connection failures and unexpected status codes
//   - [errors.RateLimitedError]: the index answered 429
//
// [httputil.RetryableError]: github.com/matzehuels/pypi-updater/pkg/httputil.RetryableError
// [errors.RateLimitedError]: github.com/matzehuels/pypi-updater/pkg/errors.RateLimitedError
package pypi
