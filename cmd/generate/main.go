package main

import (
	"os"

	"dify-manga/cmd/generate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
