// The main package for the projectsync executable.
package main

import (
	"github.com/itakello/projectsync/cmd"
)

func main() {
	cmd.Execute()
}
