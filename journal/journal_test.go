package journal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/pflow-xyz/go-forge/journal"
)

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) journal.Store {
		return journal.NewMemory()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) journal.Store {
		store, err := journal.NewSQLite(":memory:")
		if err != nil {
			t.Fatalf("Failed to open sqlite store: %v", err)
		}
		return store
	})
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) journal.Store) {
	ctx := context.Background()

	append3 := func(t *testing.T, store journal.Store) {
		t.Helper()
		entries := []struct {
			stream string
			typ    journal.EventType
		}{
			{journal.ItemStream(7), journal.EventItemCreated},
			{journal.ItemStream(7), journal.EventCrafted},
			{journal.SystemStream, journal.EventCreationToggle},
		}
		for _, in := range entries {
			e, err := journal.NewEvent(in.stream, in.typ, "alice", nil)
			if err != nil {
				t.Fatalf("NewEvent failed: %v", err)
			}
			if _, err := store.Append(ctx, e); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}
	}

	t.Run("AppendAssignsSequence", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		for want := uint64(1); want <= 3; want++ {
			e, err := journal.NewEvent(journal.SystemStream, journal.EventCreationToggle, "op", nil)
			if err != nil {
				t.Fatalf("NewEvent failed: %v", err)
			}
			seq, err := store.Append(ctx, e)
			if err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if seq != want {
				t.Errorf("Expected seq %d, got %d", want, seq)
			}
			if e.Seq != want {
				t.Errorf("Expected event seq %d, got %d", want, e.Seq)
			}
		}
	})

	t.Run("ReadStream", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		append3(t, store)

		events, err := store.Read(ctx, journal.ItemStream(7), 0)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].Type != journal.EventItemCreated || events[1].Type != journal.EventCrafted {
			t.Errorf("Unexpected event order: %s, %s", events[0].Type, events[1].Type)
		}
		if events[0].Seq >= events[1].Seq {
			t.Errorf("Expected increasing seq, got %d then %d", events[0].Seq, events[1].Seq)
		}

		events, err = store.Read(ctx, journal.ItemStream(7), 2)
		if err != nil {
			t.Fatalf("Read from seq failed: %v", err)
		}
		if len(events) != 1 || events[0].Type != journal.EventCrafted {
			t.Errorf("Expected only the craft event from seq 2, got %d events", len(events))
		}
	})

	t.Run("ReadAllFilters", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()
		append3(t, store)

		all, err := store.ReadAll(ctx, journal.Filter{})
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("Expected 3 events, got %d", len(all))
		}

		crafts, err := store.ReadAll(ctx, journal.Filter{Types: []journal.EventType{journal.EventCrafted}})
		if err != nil {
			t.Fatalf("ReadAll by type failed: %v", err)
		}
		if len(crafts) != 1 || crafts[0].Type != journal.EventCrafted {
			t.Errorf("Expected 1 craft event, got %d", len(crafts))
		}

		limited, err := store.ReadAll(ctx, journal.Filter{Limit: 2})
		if err != nil {
			t.Fatalf("ReadAll with limit failed: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("Expected 2 events with limit, got %d", len(limited))
		}

		system, err := store.ReadAll(ctx, journal.Filter{Stream: journal.SystemStream})
		if err != nil {
			t.Fatalf("ReadAll by stream failed: %v", err)
		}
		if len(system) != 1 || system[0].Stream != journal.SystemStream {
			t.Errorf("Expected 1 system event, got %d", len(system))
		}
	})

	t.Run("DataRoundTrip", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		e, err := journal.NewEvent(journal.ItemStream(9), journal.EventCrafted, "bob", journal.CraftData{
			ItemID:  9,
			Crafter: "bob",
			Amount:  1,
			TokenID: "0x1",
			Tier:    3,
		})
		if err != nil {
			t.Fatalf("NewEvent failed: %v", err)
		}
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		events, err := store.Read(ctx, journal.ItemStream(9), 0)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(events))
		}
		var data journal.CraftData
		if err := json.Unmarshal(events[0].Data, &data); err != nil {
			t.Fatalf("Failed to decode craft data: %v", err)
		}
		if data.Crafter != "bob" || data.Tier != 3 {
			t.Errorf("Unexpected craft data: %+v", data)
		}
		if events[0].Actor != "bob" {
			t.Errorf("Expected actor bob, got %q", events[0].Actor)
		}
		if events[0].Timestamp.IsZero() {
			t.Error("Expected a timestamp")
		}
	})

	t.Run("RejectsBadEvents", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		if _, err := store.Append(ctx, nil); err == nil {
			t.Error("Expected error for nil event")
		}
		e, _ := journal.NewEvent("", journal.EventCrafted, "", nil)
		if _, err := store.Append(ctx, e); err == nil {
			t.Error("Expected error for empty stream")
		}
		if _, err := store.Read(ctx, "", 0); err == nil {
			t.Error("Expected error for empty stream read")
		}
	})
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := journal.NewMemory()
	defer src.Close()

	for i := 0; i < 3; i++ {
		e, err := journal.NewEvent(journal.ItemStream(1), journal.EventCrafted, "alice",
			journal.CraftData{ItemID: 1, Crafter: "alice", Amount: 1})
		if err != nil {
			t.Fatalf("NewEvent failed: %v", err)
		}
		if _, err := src.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	var buf bytes.Buffer
	n, err := journal.Export(ctx, src, journal.Filter{}, &buf)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 exported events, got %d", n)
	}
	if lines := bytes.Count(buf.Bytes(), []byte("\n")); lines != 3 {
		t.Errorf("Expected 3 lines, got %d", lines)
	}

	dst := journal.NewMemory()
	defer dst.Close()
	n, err = journal.Import(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 imported events, got %d", n)
	}

	events, err := dst.Read(ctx, journal.ItemStream(1), 0)
	if err != nil {
		t.Fatalf("Read after import failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events after import, got %d", len(events))
	}
	for i, e := range events {
		if e.Seq != uint64(i+1) {
			t.Errorf("Expected reassigned seq %d, got %d", i+1, e.Seq)
		}
	}
}

func TestImportBadLine(t *testing.T) {
	dst := journal.NewMemory()
	defer dst.Close()
	_, err := journal.Import(context.Background(), dst, bytes.NewBufferString("{not json}\n"))
	if err == nil {
		t.Fatal("Expected error for malformed line")
	}
}
