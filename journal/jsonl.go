package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Export writes every event matching the filter as one JSON object per
// line, in sequence order.
func Export(ctx context.Context, store Store, f Filter, w io.Writer) (int, error) {
	events, err := store.ReadAll(ctx, f)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	for i, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return i, fmt.Errorf("journal: export event %d: %w", e.Seq, err)
		}
		if _, err := bw.Write(append(b, '\n')); err != nil {
			return i, fmt.Errorf("journal: export: %w", err)
		}
	}
	return len(events), bw.Flush()
}

// Import appends events from a JSONL stream. Sequence numbers are
// reassigned by the target store; the original seq is discarded.
func Import(ctx context.Context, store Store, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	n := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return n, fmt.Errorf("journal: import line %d: %w", line, err)
		}
		e.Seq = 0
		if _, err := store.Append(ctx, &e); err != nil {
			return n, fmt.Errorf("journal: import line %d: %w", line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("journal: import: %w", err)
	}
	return n, nil
}
