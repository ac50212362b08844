package main

import (
	// Import the cmd directory with root.go
	"github.com/redjax/syncrun/cmd"
)

func main() {
	// Call the root command
	cmd.Execute()
}
