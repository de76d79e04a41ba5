package planner

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/registry"
	"github.com/matzehuels/pypi-updater/pkg/version"
)

// Policy selects how update candidates are handled.
type Policy string

const (
	NonInteractive Policy = "non-interactive"
	DryRun         Policy = "dry-run"
	Interactive    Policy = "interactive"
)

// Action is the outcome of a decision.
type Action string

const (
	ActionApply     Action = "apply"
	ActionSkip      Action = "skip"
	ActionUnchanged Action = "unchanged"
)

// Skip and unchanged reasons.
const (
	ReasonUserQuit      = "user quit"
	ReasonDeclined      = "declined"
	ReasonUpToDate      = "no update needed"
	ReasonNoVersion     = "no version constraint"
	ReasonBadVersion    = "current version could not be parsed"
	ReasonNotFound      = "package not found"
	ReasonExclusion     = "exclusion pin (!=)"
	ReasonHashed        = "hash-pinned requirement"
	ReasonIgnored       = "ignored by configuration"
	ReasonNotResolved   = "not resolved"
	ReasonInterrupted   = "interrupted before write"
	reasonOperator      = "operator %s is not rewritten"
	reasonUpperBound    = "latest %s violates %s"
	reasonRegistryError = "registry %s error: %s"
)

// Decision is the verdict for one declaration.
type Decision struct {
	Declaration *deps.Declaration
	Latest      *version.Version
	Action      Action
	Reason      string
	Bump        version.Bump
	// Err is set when the decision failed: the registry could not answer
	// or the file could not be written.
	Err error
}

// Failed reports whether the decision ended in an error.
func (d Decision) Failed() bool { return d.Err != nil }

// Current returns the declared version, or nil.
func (d Decision) Current() *version.Version { return d.Declaration.Version() }

// Answer is a response to an interactive prompt.
type Answer int

const (
	AnswerSkip Answer = iota
	AnswerApply
	AnswerQuit
)

// Candidate describes a pending update shown to a [Prompter].
type Candidate struct {
	Declaration *deps.Declaration
	Current     *version.Version
	Latest      *version.Version
	Bump        version.Bump
	Index       int // 1-based position among all candidates
	Total       int
}

// Prompter asks the user about one candidate. Confirm is never called
// concurrently.
type Prompter interface {
	Confirm(ctx context.Context, c Candidate) (Answer, error)
}

// PromptFunc adapts a function to [Prompter].
type PromptFunc func(ctx context.Context, c Candidate) (Answer, error)

// Confirm calls f.
func (f PromptFunc) Confirm(ctx context.Context, c Candidate) (Answer, error) { return f(ctx, c) }

// Options configures a [Planner].
type Options struct {
	Policy   Policy
	Prompter Prompter // Required for Interactive
	Ignore   []string // Package names never updated

	// WriteFile replaces a file's content. Defaults to an atomic
	// write that keeps the file's permissions.
	WriteFile func(path string, data []byte) error
}

// Planner turns registry results into decisions and applies them.
type Planner struct {
	opts   Options
	ignore map[string]bool
}

// New creates a Planner. An empty policy means [NonInteractive].
func New(opts Options) (*Planner, error) {
	switch opts.Policy {
	case "":
		opts.Policy = NonInteractive
	case NonInteractive, DryRun:
	case Interactive:
		if opts.Prompter == nil {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "interactive policy needs a prompter")
		}
	default:
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "unknown policy %q", opts.Policy)
	}
	if opts.WriteFile == nil {
		opts.WriteFile = writeAtomic
	}

	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[deps.Normalize(name)] = true
	}
	return &Planner{opts: opts, ignore: ignore}, nil
}

// Policy returns the planner's policy.
func (p *Planner) Policy() Policy { return p.opts.Policy }

// Run plans and applies in one step.
func (p *Planner) Run(ctx context.Context, docs []*deps.Document, results map[string]registry.Result) ([]Decision, []FileOutcome) {
	decisions := p.Plan(ctx, docs, results)
	return decisions, p.Apply(ctx, docs, decisions)
}

// Plan returns one decision per declaration of docs, in order. docs must
// already be in include order. For the interactive policy the prompter is
// consulted once per candidate.
func (p *Planner) Plan(ctx context.Context, docs []*deps.Document, results map[string]registry.Result) []Decision {
	var decisions []Decision
	for _, doc := range docs {
		for _, decl := range doc.Declarations {
			decisions = append(decisions, p.evaluate(decl, results))
		}
	}

	total := 0
	for _, d := range decisions {
		if d.Action == ActionApply {
			total++
		}
	}

	if p.opts.Policy == Interactive {
		p.confirm(ctx, decisions, total)
	}
	return decisions
}

func (p *Planner) confirm(ctx context.Context, decisions []Decision, total int) {
	quit := false
	index := 0
	for i := range decisions {
		d := &decisions[i]
		if d.Action != ActionApply {
			continue
		}
		index++
		if quit {
			d.Action, d.Reason = ActionSkip, ReasonUserQuit
			continue
		}

		answer, err := p.opts.Prompter.Confirm(ctx, Candidate{
			Declaration: d.Declaration,
			Current:     d.Current(),
			Latest:      d.Latest,
			Bump:        d.Bump,
			Index:       index,
			Total:       total,
		})
		switch {
		case err != nil:
			quit = true
			d.Action, d.Reason = ActionSkip, fmt.Sprintf("%s (prompt failed: %v)", ReasonUserQuit, err)
		case answer == AnswerQuit:
			quit = true
			d.Action, d.Reason = ActionSkip, ReasonUserQuit
		case answer == AnswerApply:
		default:
			d.Action, d.Reason = ActionSkip, ReasonDeclined
		}
	}
}

// Names returns the normalized names that need a registry lookup: every
// declaration that could be updated at all. Each name appears once.
func (p *Planner) Names(docs []*deps.Document) []string {
	seen := make(map[string]bool)
	var names []string
	for _, doc := range docs {
		for _, decl := range doc.Declarations {
			if p.precheck(decl) != "" || seen[decl.Name] {
				continue
			}
			seen[decl.Name] = true
			names = append(names, decl.Name)
		}
	}
	return names
}

// precheck returns the skip reason for declarations that are never
// rewritten, whatever the registry says.
func (p *Planner) precheck(decl *deps.Declaration) string {
	primary := decl.Primary()
	switch {
	case p.ignore[decl.Name]:
		return ReasonIgnored
	case primary == nil:
		return ReasonNoVersion
	case decl.Warning != nil || primary.Version == nil:
		return ReasonBadVersion
	case primary.Op == deps.OpNotEqual:
		return ReasonExclusion
	case !rewritable(primary.Op):
		return fmt.Sprintf(reasonOperator, primary.Op)
	case decl.Hashed:
		return ReasonHashed
	}
	return ""
}

func (p *Planner) evaluate(decl *deps.Declaration, results map[string]registry.Result) Decision {
	d := Decision{Declaration: decl, Action: ActionSkip}
	if d.Reason = p.precheck(decl); d.Reason != "" {
		return d
	}

	res, ok := results[decl.Name]
	switch {
	case !ok:
		d.Reason = ReasonNotResolved
		d.Err = perrors.New(perrors.ErrCodeInternal, "%s was not resolved", decl.Name)
		return d
	case res.Failed():
		d.Reason = fmt.Sprintf(reasonRegistryError, res.Err, res.Detail)
		d.Err = perrors.New(registryCode(res.Err), "%s: %s", decl.Name, res.Detail)
		return d
	case !res.Found:
		d.Reason = ReasonNotFound
		return d
	}

	current := decl.Version()
	d.Latest = res.Latest
	d.Bump = version.Classify(current, res.Latest)
	if !res.Latest.GreaterThan(current) {
		d.Action, d.Reason = ActionUnchanged, ReasonUpToDate
		return d
	}
	if c, ok := violated(decl.Clauses[1:], res.Latest); ok {
		d.Reason = fmt.Sprintf(reasonUpperBound, res.Latest, string(c.Op)+c.Text)
		return d
	}

	d.Action, d.Reason = ActionApply, ""
	return d
}

var rewritableOps = []deps.Operator{
	deps.OpEqual, deps.OpGreaterEq, deps.OpLessEq, deps.OpCompat,
	deps.OpCaret, deps.OpTilde, deps.OpExact,
}

func rewritable(op deps.Operator) bool { return slices.Contains(rewritableOps, op) }

// violated returns the first secondary clause that rules out latest.
// Clauses whose version did not parse, such as wildcards, are ignored.
func violated(clauses []deps.Clause, latest *version.Version) (deps.Clause, bool) {
	for _, c := range clauses {
		if c.Version == nil {
			continue
		}
		if !allows(c, latest) {
			return c, true
		}
	}
	return deps.Clause{}, false
}

func allows(c deps.Clause, v *version.Version) bool {
	switch c.Op {
	case deps.OpLess:
		return v.LessThan(c.Version)
	case deps.OpLessEq:
		return !v.GreaterThan(c.Version)
	case deps.OpGreater:
		return v.GreaterThan(c.Version)
	case deps.OpGreaterEq:
		return !v.LessThan(c.Version)
	case deps.OpNotEqual:
		return !v.Equal(c.Version)
	case deps.OpEqual, deps.OpExact:
		return v.Equal(c.Version)
	case deps.OpArbitrary:
		return v.String() == c.Text
	case deps.OpCompat:
		return version.Compatible(v, c.Version)
	case deps.OpCaret:
		ok, err := version.Caret(v, c.Version)
		return ok && err == nil
	case deps.OpTilde:
		ok, err := version.Tilde(v, c.Version)
		return ok && err == nil
	}
	return true
}

func registryCode(kind registry.ErrorKind) perrors.Code {
	switch kind {
	case registry.ErrTimeout:
		return perrors.ErrCodeTimeout
	case registry.ErrInvalidVersion:
		return perrors.ErrCodeInvalidVersion
	default:
		return perrors.ErrCodeNetwork
	}
}
