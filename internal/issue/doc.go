// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and Markdown help pages for the
// failures an operator can fix: missing runtimes, policy blocks, missing
// container engines and broken configuration.
package issue
