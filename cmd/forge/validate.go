package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/mutator"
)

type manifestReport struct {
	Atoms    int      `json:"atoms"`
	Items    int      `json:"items"`
	Scripts  int      `json:"scripts"`
	Problems []string `json:"problems,omitempty"`
	Valid    bool     `json:"valid"`
}

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	outputJSON := fs.Bool("json", false, "Output report as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge validate <manifest.yaml|manifest.json> [options]

Validate a world manifest without starting a server.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Checks performed:
  - Definition validity (atoms, item types, criteria)
  - Script compilation
  - Mutator references resolve to declared scripts
  - Fixed-atom components resolve to declared atoms
  - Item targets only reference earlier manifest entries

Examples:
  forge validate world.yaml
  forge validate world.json --json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("manifest file required")
	}

	m, err := blueprint.LoadManifest(fs.Arg(0))
	if err != nil {
		return err
	}

	var problems []string

	declared := make(map[string]bool, len(m.Scripts))
	for _, s := range m.Scripts {
		declared[s.ID] = true
		if _, err := mutator.CompileScript(s.ID, s.Source); err != nil {
			problems = append(problems, err.Error())
		}
	}

	atomIDs := make(map[string]bool, len(m.Atoms))
	for _, a := range m.Atoms {
		atomIDs[a.ID.Dec()] = true
	}

	// Items take identities 1..n in declaration order, so targets may
	// only point backward.
	for idx, it := range m.Items {
		if it.MutatorID != "" && !declared[it.MutatorID] {
			problems = append(problems,
				fmt.Sprintf("item %q references undeclared mutator %q", it.Name, it.MutatorID))
		}
		for i, c := range it.Components {
			switch c.Kind {
			case blueprint.FixedAtom:
				if c.Target != nil && !atomIDs[c.Target.Dec()] {
					problems = append(problems,
						fmt.Sprintf("item %q component %d references undeclared atom %s", it.Name, i, c.Target.Dec()))
				}
			case blueprint.FixedItem, blueprint.UniqueItem:
				// A nil or zero unique-item target accepts any origin.
				if c.Target == nil || c.Target.IsZero() {
					continue
				}
				if !c.Target.IsUint64() || c.Target.Uint64() > uint64(idx) {
					problems = append(problems,
						fmt.Sprintf("item %q component %d targets item %s, which is not declared earlier", it.Name, i, c.Target.Dec()))
				}
			}
		}
	}

	report := manifestReport{
		Atoms:    len(m.Atoms),
		Items:    len(m.Items),
		Scripts:  len(m.Scripts),
		Problems: problems,
		Valid:    len(problems) == 0,
	}

	if *outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Println("=== Manifest Validation ===")
		fmt.Printf("Manifest: %d atoms, %d items, %d scripts\n", report.Atoms, report.Items, report.Scripts)
		for _, p := range problems {
			fmt.Printf("  ✗ %s\n", p)
		}
		if report.Valid {
			fmt.Println("✓ Validation PASSED")
		} else {
			fmt.Printf("✗ Validation FAILED: %d problem(s)\n", len(problems))
		}
	}

	if !report.Valid {
		os.Exit(1)
	}
	return nil
}
