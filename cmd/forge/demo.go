package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/atom"
	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/token"
	"github.com/pflow-xyz/go-forge/trait"
)

// demoScript drives the Storm Blade: tier follows shard mass, damage
// follows tier, and each use polishes the blade.
const demoScript = `
function calculateTier(req) {
	var mass = 0;
	for (var i = 0; i < req.variable.length; i++) {
		mass += req.variable[i].props.mass;
	}
	var tier = Math.floor(mass / 25);
	return { tier: tier, traits: { damage: tier * 10 } };
}

function onItemUse(req) {
	var polish = (req.currentTraits.polish || 0) + 1;
	return { traits: { polish: polish } };
}
`

func demo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: forge demo

Run a self-contained crafting session: register atoms, publish a
potion and a blade, craft both, use and transfer the blade, and print
the audit journal.
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	const publisher = "publisher"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := forge.New(forge.Config{Admin: publisher, Logger: log})

	script, err := mutator.CompileScript("storm", demoScript)
	if err != nil {
		return err
	}
	if err := engine.Mutators().Register("storm", script); err != nil {
		return err
	}

	fmt.Println("=== go-forge demo ===")
	fmt.Println()
	fmt.Println("-- world --")

	if err := engine.RegisterAtom(ctx, publisher, &atom.Def{ID: uint256.NewInt(1001), Name: "ju2"}); err != nil {
		return err
	}
	if err := engine.RegisterAtom(ctx, publisher, &atom.Def{
		ID:    uint256.NewInt(2075),
		Name:  "storm shard",
		Props: trait.FromEntries([]trait.Entry{{Name: "mass", Value: trait.Num(75)}}),
	}); err != nil {
		return err
	}
	fmt.Println("atom 1001: ju2")
	fmt.Println("atom 2075: storm shard (mass=75)")

	potionID, err := engine.CreateItem(ctx, publisher, &blueprint.ItemType{
		Name: "Healing Potion",
		Kind: blueprint.Fungible,
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: uint256.NewInt(1001), Amount: 2},
		},
	})
	if err != nil {
		return err
	}
	bladeID, err := engine.CreateItem(ctx, publisher, &blueprint.ItemType{
		Name:      "Storm Blade",
		Kind:      blueprint.Unique,
		MutatorID: "storm",
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: uint256.NewInt(1001), Amount: 1},
			{Kind: blueprint.VariableAtom, Amount: 1, Criteria: []criteria.Criterion{
				{Property: "mass", Mode: criteria.Range, Min: uint256.NewInt(50), Max: uint256.NewInt(100)},
			}},
		},
		TierImages: [7]string{"t1.png", "t2.png", "t3.png", "t4.png", "t5.png", "t6.png", "t7.png"},
	})
	if err != nil {
		return err
	}
	fmt.Printf("item %d: Healing Potion (fungible)\n", potionID)
	fmt.Printf("item %d: Storm Blade (unique)\n", bladeID)

	if err := engine.MintResource(ctx, publisher, "alice", uint256.NewInt(1001), uint256.NewInt(10)); err != nil {
		return err
	}
	if err := engine.MintResource(ctx, publisher, "alice", uint256.NewInt(2075), uint256.NewInt(1)); err != nil {
		return err
	}
	fmt.Println("minted to alice: 10 ju2, 1 storm shard")

	fmt.Println()
	fmt.Println("-- craft --")
	if _, err := engine.Craft(ctx, forge.CraftRequest{Caller: "alice", ItemID: potionID, Amount: 3}); err != nil {
		return err
	}
	fmt.Printf("alice crafts 3 Healing Potion (ju2 left: %s)\n",
		engine.BalanceOf("alice", uint256.NewInt(1001)).Dec())

	res, err := engine.Craft(ctx, forge.CraftRequest{
		Caller:   "alice",
		ItemID:   bladeID,
		Amount:   1,
		Variable: []*uint256.Int{uint256.NewInt(2075)},
	})
	if err != nil {
		return err
	}
	fmt.Println("alice crafts a Storm Blade:")
	fmt.Printf("  token:      %s\n", token.Format(res.TokenID))
	fmt.Printf("  serial:     %d\n", res.Serial)
	fmt.Printf("  tier:       %d\n", res.Tier)
	fmt.Printf("  commitment: %s\n", res.Commitment)
	printTraits(res.Traits)

	fmt.Println()
	fmt.Println("-- use --")
	outcome, err := engine.Use(ctx, "alice", res.TokenID, nil)
	if err != nil {
		return err
	}
	fmt.Println("alice polishes the blade:")
	printTraits(outcome.Traits)

	fmt.Println()
	fmt.Println("-- transfer --")
	if err := engine.Transfer(ctx, "alice", "alice", "bob", res.TokenID, uint256.NewInt(1)); err != nil {
		return err
	}
	owner, _ := engine.OwnerOf(res.TokenID)
	fmt.Printf("alice gives the blade to bob (owner now: %s)\n", owner)

	if err := engine.Consume(ctx, "alice", "alice", potionID, 1); err != nil {
		return err
	}
	fmt.Printf("alice drinks a potion (potions left: %s)\n",
		engine.BalanceOf("alice", token.Fungible(potionID)).Dec())

	fmt.Println()
	fmt.Println("-- journal --")
	events, err := engine.Journal().ReadAll(ctx, journal.Filter{})
	if err != nil {
		return err
	}
	for _, ev := range events {
		stream := ev.Stream
		if len(stream) > 24 {
			stream = stream[:21] + "..."
		}
		fmt.Printf("%4d  %-24s %-16s %s\n", ev.Seq, stream, string(ev.Type), ev.Actor)
	}
	return nil
}

func printTraits(entries []trait.Entry) {
	if len(entries) == 0 {
		return
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s=%s", e.Name, e.Value.String())
	}
	fmt.Printf("  traits:     %s\n", strings.Join(parts, " "))
}
