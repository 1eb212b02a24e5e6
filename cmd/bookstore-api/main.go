package main

import (
	"fmt"
	"os"

	"github.com/aq2208/bookstore-api/cmd/bookstore-api/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
