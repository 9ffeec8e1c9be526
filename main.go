// The main package for the leadtrail executable.
package main

import (
	"github.com/leadtrail/leadtrail/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
