package main

import (
	"os"

	"github.com/imagilearn/corpus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
