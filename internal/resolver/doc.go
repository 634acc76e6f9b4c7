// SPDX-License-Identifier: MPL-2.0

// Package resolver decides which bundled Node.js runtime runs a task step.
//
// A ResolutionContext snapshots the facts of one step: host or container mode, the
// task's declared handler, the agent knobs, an optional user override path, glibc
// compatibility and, in container mode, host-to-container path translation.
//
// Strategies are evaluated in a fixed priority order: the custom override first, then
// one strategy per runtime from newest to oldest. Each strategy is a pure function of
// the context and returns an Outcome: not applicable, selected, or fatal. The first
// selection wins. A NoCompatibleVersionError ends resolution immediately; any other
// strategy failure is logged and the next strategy is tried.
//
// The container Orchestrator evaluates a shorter chain and confirms each selection by
// running `node --version` inside the already-running job container. A failed probe
// moves on to the next strategy without surfacing an error.
package resolver
