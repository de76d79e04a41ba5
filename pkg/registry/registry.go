package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/matzehuels/pypi-updater/pkg/deps"
	"github.com/matzehuels/pypi-updater/pkg/httputil"
	"github.com/matzehuels/pypi-updater/pkg/integrations"
	"github.com/matzehuels/pypi-updater/pkg/integrations/pypi"
	"github.com/matzehuels/pypi-updater/pkg/observability"
	"github.com/matzehuels/pypi-updater/pkg/version"
)

// Defaults applied by [Options.WithDefaults].
const (
	DefaultConcurrency  = 10
	DefaultAttempts     = 3
	DefaultBackoff      = 500 * time.Millisecond
	DefaultQueryTimeout = 10 * time.Second
	DefaultTimeout      = 2 * time.Minute
)

// ErrorKind classifies why a query produced no usable version.
type ErrorKind string

const (
	ErrNone           ErrorKind = ""
	ErrNetwork        ErrorKind = "network"
	ErrTimeout        ErrorKind = "timeout"
	ErrInvalidVersion ErrorKind = "invalid_version"
)

// Result is the outcome of resolving one package name.
type Result struct {
	Name     string           `json:"name"`
	Latest   *version.Version `json:"latest,omitempty"`
	Found    bool             `json:"found"`
	Err      ErrorKind        `json:"error,omitempty"`
	Attempts int              `json:"attempts"`
	Detail   string           `json:"detail,omitempty"`
}

// Failed reports whether the query ended in an error, as opposed to a
// version or a definitive "not found".
func (r Result) Failed() bool { return r.Err != ErrNone }

// Fetcher retrieves the latest release of a package.
// [pypi.Client] is the production implementation.
type Fetcher interface {
	FetchLatest(ctx context.Context, name string) (*pypi.Release, error)
}

// Options configures a [Resolver]. Zero values select the defaults.
type Options struct {
	Concurrency  int           // Parallel queries (default 10)
	Attempts     int           // Attempts per query, including the first (default 3)
	Backoff      time.Duration // Delay before the first retry; doubles after each (default 500ms)
	QueryTimeout time.Duration // Bound on a single attempt (default 10s)
	Timeout      time.Duration // Bound on the whole Resolve call (default 2m, negative disables)
	RateLimit    float64       // Requests per second across all queries (0 = unlimited)
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Resolver resolves package names against an index.
// It holds no state between calls and is safe for concurrent use.
type Resolver struct {
	fetcher Fetcher
	opts    Options
}

// New creates a Resolver querying fetcher.
func New(fetcher Fetcher, opts Options) *Resolver {
	return &Resolver{fetcher: fetcher, opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (r *Resolver) Options() Options { return r.opts }

// Resolve queries the latest version of every name. Names are normalized
// and deduplicated, so the returned map is keyed by normalized name and
// contains each exactly once.
func (r *Resolver) Resolve(ctx context.Context, names []string) map[string]Result {
	pending := unique(names)
	results := make(map[string]Result, len(pending))
	if len(pending) == 0 {
		return results
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	var limiter *rate.Limiter
	if r.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.RateLimit), 1)
	}

	// Buffered so abandoned queries never block after Resolve returns.
	out := make(chan Result, len(pending))
	go func() {
		var g errgroup.Group
		g.SetLimit(r.opts.Concurrency)
		for _, name := range pending {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				out <- r.query(ctx, name, limiter)
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()

collect:
	for {
		select {
		case res, ok := <-out:
			if !ok {
				break collect
			}
			results[res.Name] = res
		case <-ctx.Done():
			drain(out, results)
			break collect
		}
	}

	for _, name := range pending {
		if _, ok := results[name]; !ok {
			results[name] = Result{Name: name, Err: ErrTimeout, Detail: "not resolved before the deadline"}
		}
	}
	return results
}

func (r *Resolver) query(ctx context.Context, name string, limiter *rate.Limiter) Result {
	hooks := observability.Registry()
	hooks.OnQueryStart(ctx, name)
	start := time.Now()

	res := Result{Name: name}
	var rel *pypi.Release
	err := httputil.Retry(ctx, r.opts.Attempts, r.opts.Backoff, func() error {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		res.Attempts++

		qctx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
		var err error
		rel, err = r.fetcher.FetchLatest(qctx, name)
		if err != nil && ctx.Err() == nil && qctx.Err() != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("%w: no response within %s", integrations.ErrNetwork, r.opts.QueryTimeout)}
		}
		return err
	})
	hooks.OnQueryComplete(ctx, name, res.Attempts, time.Since(start), err)

	return classify(ctx, res, rel, err)
}

func classify(ctx context.Context, res Result, rel *pypi.Release, err error) Result {
	switch {
	case err == nil:
		v, perr := version.Parse(rel.Version)
		if perr != nil {
			res.Found = true
			res.Err = ErrInvalidVersion
			res.Detail = perr.Error()
			return res
		}
		res.Found = true
		res.Latest = v
	case errors.Is(err, integrations.ErrNotFound):
		res.Detail = "package not found"
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		res.Err = ErrTimeout
		res.Detail = "query abandoned: " + err.Error()
	default:
		res.Err = ErrNetwork
		res.Detail = err.Error()
	}
	return res
}

// drain collects results that completed before the deadline was observed.
func drain(out <-chan Result, results map[string]Result) {
	for {
		select {
		case res, ok := <-out:
			if !ok {
				return
			}
			results[res.Name] = res
		default:
			return
		}
	}
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = deps.Normalize(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
