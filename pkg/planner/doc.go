// Package planner decides, for every declaration, whether to rewrite its
// version and applies the accepted edits.
//
// Planning happens after registry resolution has finished, one
// declaration at a time in include order. Each declaration gets exactly
// one [Decision]:
//
//   - apply: latest is newer than the declared version and the policy
//     accepted the change
//   - unchanged: the declared version is already the latest
//   - skip: the declaration cannot or should not be rewritten, with a
//     [Decision.Reason] saying why
//
// The [Policy] decides what happens to update candidates. [NonInteractive]
// accepts all of them, [DryRun] accepts them without writing, and
// [Interactive] asks a [Prompter] about each one in turn. Answering quit
// turns the current and every later candidate into a skip with reason
// [ReasonUserQuit].
//
// [Planner.Apply] renders each file once with all its accepted edits and
// writes it atomically. Files without accepted edits are never touched.
package planner
