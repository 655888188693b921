// Package journal is the append-only audit log of the crafting core.
// Every lifecycle change, craft, use, and approval lands here with a
// global sequence number, so the full history of an item type or a
// single token can be replayed later.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/token"
)

// EventType classifies journal entries.
type EventType string

const (
	EventItemCreated    EventType = "item.created"
	EventItemUpdated    EventType = "item.updated"
	EventItemFrozen     EventType = "item.frozen"
	EventItemAdmin      EventType = "item.admin"
	EventCrafted        EventType = "craft"
	EventUsed           EventType = "use"
	EventDestroyed      EventType = "destroy"
	EventConsumed       EventType = "consume"
	EventTransferred    EventType = "transfer"
	EventApproval       EventType = "approval"
	EventAtomRegistered EventType = "atom.registered"
	EventAtomProps      EventType = "atom.props"
	EventResourceMinted EventType = "resource.minted"
	EventCreationToggle EventType = "system.creation"
)

// SystemStream collects events not tied to one item or token.
const SystemStream = "system"

// ItemStream names the per-item-type stream.
func ItemStream(itemID uint64) string {
	return fmt.Sprintf("item/%d", itemID)
}

// TokenStream names the per-token stream.
func TokenStream(id *uint256.Int) string {
	return "token/" + token.Format(id)
}

// Event is one journal entry. Seq is assigned by the store on append
// and is strictly increasing across all streams.
type Event struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Stream    string          `json:"stream"`
	Type      EventType       `json:"type"`
	Actor     string          `json:"actor,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an unsequenced event with a fresh id and the data
// payload marshaled in place.
func NewEvent(stream string, typ EventType, actor string, data interface{}) (*Event, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("journal: marshal event data: %w", err)
		}
		raw = b
	}
	return &Event{
		ID:        uuid.NewString(),
		Stream:    stream,
		Type:      typ,
		Actor:     actor,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Filter narrows ReadAll.
type Filter struct {
	Stream  string
	Types   []EventType
	FromSeq uint64
	Limit   int
}

func (f Filter) matchType(typ EventType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == typ {
			return true
		}
	}
	return false
}

// Store persists events. Append assigns the sequence number and
// returns it; reads come back in sequence order.
type Store interface {
	Append(ctx context.Context, e *Event) (uint64, error)
	Read(ctx context.Context, stream string, fromSeq uint64) ([]*Event, error)
	ReadAll(ctx context.Context, f Filter) ([]*Event, error)
	Close() error
}
