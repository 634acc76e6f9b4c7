// SPDX-License-Identifier: MPL-2.0

// Package knob defines the agent feature flags ("knobs") that steer Node.js runtime
// selection and reads their effective values from layered sources.
//
// Sources are consulted in the order given to NewReader; the first source that knows
// a knob wins. The CLI wires them as: --knob flags, process environment, config file.
// Unset knobs fall back to the catalogue default.
package knob
