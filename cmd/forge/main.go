package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "serve":
		if err := serve(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "derive":
		if err := derive(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "demo":
		if err := demo(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("forge version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`forge - item crafting engine

Usage:
  forge <command> [options]

Commands:
  serve      Run the HTTP server and websocket event feed
  validate   Validate a world manifest
  derive     Derive unique token identities from item id and serial
  demo       Run a self-contained crafting demo
  help       Show this help message
  version    Show version information

Examples:
  # Validate a manifest before serving it
  forge validate world.yaml

  # Serve a world with a durable journal
  FORGE_JOURNAL_PATH=journal.db forge serve --manifest world.yaml

  # Predict the token id of the next blade
  forge derive 2 7

For command-specific help, run:
  forge <command> --help`)
}
