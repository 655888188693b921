package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/pflow-xyz/go-forge/token"
)

func derive(args []string) error {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	count := fs.Int("count", 1, "Number of consecutive serials to derive")
	crafter := fs.String("crafter", "", "Also print the tier seed for this crafter identity")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge derive <item-id> <serial> [options]

Derive the unique token identities an item type will mint. Identities
are deterministic in (item id, serial), so the id of a future token is
known before it is crafted.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Identity of blade number 7
  forge derive 2 7

  # The next ten identities, with alice's tier seeds
  forge derive 2 1 --count 10 --crafter alice
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("item id and serial required")
	}

	itemID, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	serial, err := strconv.ParseUint(fs.Arg(1), 10, 64)
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if *count < 1 {
		return fmt.Errorf("count must be positive")
	}

	for i := 0; i < *count; i++ {
		s := serial + uint64(i)
		id := token.Unique(itemID, s)
		fmt.Printf("item %d serial %d: %s\n", itemID, s, token.Format(id))
		if *crafter != "" {
			fmt.Printf("  seed(%s): %d\n", *crafter, token.SerialSeed(itemID, s, *crafter))
		}
	}
	return nil
}
