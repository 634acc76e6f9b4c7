// SPDX-License-Identifier: MPL-2.0

// Command nodesel selects the node runtime a CI step runs on.
package main

import cmd "github.com/nodesel/nodesel/cmd/nodesel"

func main() {
	cmd.Execute()
}
