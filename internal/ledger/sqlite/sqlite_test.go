package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/igianni84/woo-ai-assistant/internal/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []ledger.Entry{
		{Identity: "user:1", ConversationID: "c1", SessionID: "s1", TokensUsed: 40, ChunkCount: 3, Transport: ledger.TransportPush},
		{Identity: "user:1", ConversationID: "c2", SessionID: "s2", TokensUsed: 10, ChunkCount: 1, Transport: ledger.TransportBuffered},
		{Identity: "user:2", ConversationID: "c3", SessionID: "s3", TokensUsed: 99, ChunkCount: 9, Transport: ledger.TransportPush},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	summary, err := store.Summary(ctx, "user:1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Deliveries != 2 || summary.TokensUsed != 50 || summary.ChunksTotal != 4 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRecord_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, ledger.Entry{Transport: ledger.TransportPush}); err == nil {
		t.Error("expected error for missing identity")
	}
	if err := store.Record(ctx, ledger.Entry{Identity: "u", Transport: "carrier-pigeon"}); err == nil {
		t.Error("expected error for invalid transport")
	}
}

func TestListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, ledger.Entry{
			Identity:       "user:1",
			ConversationID: "c1",
			SessionID:      "s1",
			TokensUsed:     int64(i),
			ChunkCount:     1,
			Transport:      ledger.TransportPush,
			Memo:           "assist.stream",
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := store.ListRecent(ctx, "user:1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Memo != "assist.stream" || entries[0].Transport != ledger.TransportPush {
		t.Errorf("unexpected entry %+v", entries[0])
	}
}
