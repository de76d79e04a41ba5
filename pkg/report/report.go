// Package report aggregates the outcome of a run into a [Summary].
//
// [Build] is pure: it only reads its input and never touches the file
// system or the terminal. Rendering a summary is left to the caller.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pypi-updater/pkg/compile"
	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/planner"
)

// Input is everything a run produced.
type Input struct {
	RunID    string // Generated when empty
	Mode     string
	Started  time.Time
	Finished time.Time

	Files     []*deps.File // In update order
	Decisions []planner.Decision
	Outcomes  []planner.FileOutcome
	Errors    []error  // Run-level errors: parse, read and graph failures
	Warnings  []string // Declaration warnings, missing includes

	Compile    *compile.Result
	CompileErr error
}

// Counts tallies decisions by outcome. A failed decision is counted only
// as Failed.
type Counts struct {
	Total     int `json:"total"`
	Applied   int `json:"applied"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Unchanged int `json:"unchanged"`
}

func (c *Counts) add(d *planner.Decision) {
	c.Total++
	switch {
	case d.Failed():
		c.Failed++
	case d.Action == planner.ActionApply:
		c.Applied++
	case d.Action == planner.ActionUnchanged:
		c.Unchanged++
	default:
		c.Skipped++
	}
}

// FileSummary is the per-file breakdown.
type FileSummary struct {
	Path    string `json:"path"`
	Format  string `json:"format"`
	Written bool   `json:"written"`
	Counts
}

// ActionFailed is the [Decision.Action] of a decision that carries an error.
const ActionFailed = "failed"

// Decision is the reporting view of a [planner.Decision].
type Decision struct {
	File    string `json:"file"`
	Line    int    `json:"line"` // 1-based
	Package string `json:"package"`
	Current string `json:"current,omitempty"`
	Latest  string `json:"latest,omitempty"`
	Action  string `json:"action"`
	Bump    string `json:"bump,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"` // Error code of failed and not-found decisions
	Error   string `json:"error,omitempty"`
}

// Error is a failure recorded during the run.
type Error struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Package string `json:"package,omitempty"`
	Message string `json:"message"`
}

// Summary is the immutable result of a run.
type Summary struct {
	RunID     string          `json:"run_id"`
	Mode      string          `json:"mode"`
	Started   time.Time       `json:"started"`
	Finished  time.Time       `json:"finished"`
	Counts    Counts          `json:"counts"`
	Files     []FileSummary   `json:"files"`
	Decisions []Decision      `json:"decisions"`
	Errors    []Error         `json:"errors,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Compile   *compile.Result `json:"compile,omitempty"`
}

// Build aggregates in into a Summary.
func Build(in Input) *Summary {
	s := &Summary{
		RunID:     in.RunID,
		Mode:      in.Mode,
		Started:   in.Started,
		Finished:  in.Finished,
		Files:     make([]FileSummary, 0, len(in.Files)),
		Decisions: make([]Decision, 0, len(in.Decisions)),
		Warnings:  append([]string(nil), in.Warnings...),
		Compile:   in.Compile,
	}
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}

	index := make(map[*deps.File]int, len(in.Files))
	for _, f := range in.Files {
		index[f] = len(s.Files)
		s.Files = append(s.Files, FileSummary{Path: f.String(), Format: string(f.Format)})
	}
	for _, o := range in.Outcomes {
		if i, ok := index[o.File]; ok {
			s.Files[i].Written = o.Written
		}
	}

	for _, err := range in.Errors {
		s.Errors = append(s.Errors, newError(err, "", ""))
	}

	for i := range in.Decisions {
		d := &in.Decisions[i]
		s.Counts.add(d)
		if fi, ok := index[d.Declaration.File]; ok {
			s.Files[fi].Counts.add(d)
		}
		s.Decisions = append(s.Decisions, decisionView(d))
		if d.Err != nil {
			s.Errors = append(s.Errors, newError(d.Err, d.Declaration.File.String(), d.Declaration.Name))
		}
	}

	if in.CompileErr != nil {
		s.Warnings = append(s.Warnings, perrors.UserMessage(in.CompileErr))
	}
	return s
}

func decisionView(d *planner.Decision) Decision {
	v := Decision{
		File:    d.Declaration.File.String(),
		Line:    d.Declaration.Line + 1,
		Package: d.Declaration.Name,
		Action:  string(d.Action),
		Reason:  d.Reason,
	}
	if c := d.Declaration.Primary(); c != nil {
		v.Current = c.Text
	}
	if d.Latest != nil {
		v.Latest = d.Latest.String()
		v.Bump = d.Bump.String()
	}
	switch {
	case d.Err != nil:
		v.Action = ActionFailed
		v.Code = newError(d.Err, "", "").Code
		v.Error = perrors.UserMessage(d.Err)
	case d.Reason == planner.ReasonNotFound:
		v.Code = string(perrors.ErrCodePackageNotFound)
	}
	return v
}

func newError(err error, file, pkg string) Error {
	code := perrors.GetCode(err)
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	return Error{Code: string(code), File: file, Package: pkg, Message: perrors.UserMessage(err)}
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Updates returns the decisions that changed, or in a dry run would change,
// a version.
func (s *Summary) Updates() []Decision {
	var out []Decision
	for _, d := range s.Decisions {
		if d.Action == string(planner.ActionApply) {
			out = append(out, d)
		}
	}
	return out
}

// SuccessRate is the share of decisions that did not fail, between 0
// and 1. A run without decisions has a rate of 1.
func (s *Summary) SuccessRate() float64 {
	if s.Counts.Total == 0 {
		return 1
	}
	return float64(s.Counts.Total-s.Counts.Failed) / float64(s.Counts.Total)
}

// HasFailures reports whether any decision failed or a run-level error was
// recorded. Compile problems are warnings and do not count.
func (s *Summary) HasFailures() bool {
	return s.Counts.Failed > 0 || len(s.Errors) > 0
}
