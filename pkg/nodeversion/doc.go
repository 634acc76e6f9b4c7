// SPDX-License-Identifier: MPL-2.0

// Package nodeversion enumerates the Node.js runtimes an agent ships in its externals
// directory. Each ID maps to exactly one externals folder and a fixed end-of-life status.
package nodeversion
