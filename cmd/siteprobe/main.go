// The main package for the siteprobe executable.
package main

import "github.com/JakeFAU/siteprobe/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
