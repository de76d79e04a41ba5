// Package integrations provides the HTTP plumbing shared by package index
// clients.
//
// [Client] performs JSON GET requests with default headers, reports every
// request to the [observability.HTTPHooks], and classifies responses:
//
//   - 200: success
//   - 404, 410: [ErrNotFound], never retried
//   - 429: [errors.RateLimitedError] wrapped in [httputil.RetryableError]
//   - 5xx and transport failures: [ErrNetwork] wrapped in [httputil.RetryableError]
//
// Clients for a concrete index live in subpackages; see [pypi].
//
// [pypi]: github.com/matzehuels/pypi-updater/pkg/integrations/pypi
// [errors.RateLimitedError]: github.com/matzehuels/pypi-updater/pkg/errors
package integrations
