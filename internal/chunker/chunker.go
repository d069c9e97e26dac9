package chunker

import (
	"strings"
)

const (
	// MinChunkSize is the smallest target size callers may request.
	MinChunkSize = 10

	// MaxChunkSize caps the target size regardless of client configuration.
	MaxChunkSize = 500

	// DefaultChunkSize is used when the client does not specify a size.
	DefaultChunkSize = 120
)

// Split breaks text into sentence-aligned chunks of roughly targetSize
// characters. Sentences are never cut: a single sentence longer than
// targetSize becomes its own oversized chunk rather than being truncated.
// Empty input yields no chunks; text without sentence punctuation is treated
// as one sentence.
func Split(text string, targetSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	if len(text) <= targetSize {
		return []string{text}
	}

	sentences := SplitSentences(text)
	chunks := make([]string, 0, len(sentences))
	var buf strings.Builder
	for _, sentence := range sentences {
		candidate := len(sentence)
		if buf.Len() > 0 {
			candidate += buf.Len() + 1
		}
		if candidate > targetSize && buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(sentence)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// SplitSentences splits text on end-of-sentence punctuation (., !, ?)
// followed by whitespace. The punctuation stays attached to its sentence.
// This is a deliberate heuristic: abbreviations like "Dr. Smith" mis-split
// and that is accepted behaviour.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		// consume a run of terminal punctuation ("?!", "...")
		end := i
		for end+1 < len(text) && isSentenceEnd(text[end+1]) {
			end++
		}
		if end+1 < len(text) && !isSpace(text[end+1]) {
			i = end
			continue
		}
		sentence := strings.TrimSpace(text[start : end+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end + 1
		i = end
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// MergeTail enforces a maximum chunk count by folding every chunk past the
// limit into the final one. Content is never dropped; the last chunk simply
// grows past the target size.
func MergeTail(chunks []string, maxChunks int) []string {
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks
	}
	merged := make([]string, maxChunks)
	copy(merged, chunks[:maxChunks-1])
	merged[maxChunks-1] = strings.Join(chunks[maxChunks-1:], " ")
	return merged
}

func isSentenceEnd(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
