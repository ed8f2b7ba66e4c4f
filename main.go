// SPDX-License-Identifier: MPL-2.0

package main

import cmd "dockstrap-cli/cmd/dockstrap"

func main() {
	cmd.Execute()
}
