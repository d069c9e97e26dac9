package streaming

import (
	"time"

	"github.com/igianni84/woo-ai-assistant/internal/assist"
)

// ChunkIterator walks a split response as a finite, forward-only sequence of
// ResponseChunk values. It replaces the per-chunk callback style: both the
// push emitter and the buffered collector consume the same iterator.
type ChunkIterator struct {
	conversationID string
	parts          []string
	next           int
}

// NewChunkIterator wraps the ordered chunk texts for one conversation.
func NewChunkIterator(conversationID string, parts []string) *ChunkIterator {
	return &ChunkIterator{conversationID: conversationID, parts: parts}
}

// Len reports the total number of chunks the iterator will yield.
func (it *ChunkIterator) Len() int {
	return len(it.parts)
}

// Next yields the next chunk. The second return is false once the sequence is
// exhausted; the iterator is not restartable.
func (it *ChunkIterator) Next() (assist.ResponseChunk, bool) {
	if it.next >= len(it.parts) {
		return assist.ResponseChunk{}, false
	}
	chunk := assist.ResponseChunk{
		Index:          it.next,
		Content:        it.parts[it.next],
		IsFinal:        it.next == len(it.parts)-1,
		ConversationID: it.conversationID,
		Timestamp:      time.Now().UTC(),
	}
	it.next++
	return chunk, true
}

// Collect drains the remaining chunks into a slice. Used by the buffered
// fallback path.
func (it *ChunkIterator) Collect() []assist.ResponseChunk {
	out := make([]assist.ResponseChunk, 0, len(it.parts)-it.next)
	for {
		chunk, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, chunk)
	}
}
