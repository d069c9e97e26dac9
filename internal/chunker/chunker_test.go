package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("Hello there.", 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Hello there." {
		t.Errorf("unexpected chunk %q", chunks[0])
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, size := range []int{1, 50, 500} {
		if chunks := Split("", size); len(chunks) != 0 {
			t.Errorf("size=%d: expected no chunks, got %v", size, chunks)
		}
	}
	if chunks := Split("   \n\t ", 50); len(chunks) != 0 {
		t.Errorf("whitespace-only input should yield no chunks, got %v", chunks)
	}
}

func TestSplit_SentenceAligned(t *testing.T) {
	text := "Shipping takes 3 to 5 days. Returns are accepted within 30 days. Thank you!"
	chunks := Split(text, 40)

	want := []string{
		"Shipping takes 3 to 5 days.",
		"Returns are accepted within 30 days.",
		"Thank you!",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	texts := []string{
		"One. Two. Three. Four. Five. Six. Seven. Eight. Nine. Ten.",
		"A question? An answer! And a statement. Then more text without punctuation",
		"Your order #123 ships tomorrow. Tracking arrives by email. Reply STOP to opt out.",
	}
	for _, text := range texts {
		for _, size := range []int{15, 40, 80} {
			chunks := Split(text, size)
			joined := strings.Join(chunks, " ")
			if joined != text {
				t.Errorf("size=%d: round trip mismatch\nwant %q\ngot  %q", size, text, joined)
			}
		}
	}
}

func TestSplit_BoundRespected(t *testing.T) {
	// All sentences shorter than the target: no chunk may exceed it.
	text := "Aa bb cc. Dd ee ff. Gg hh ii. Jj kk ll. Mm nn oo. Pp qq rr."
	chunks := Split(text, 25)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	for i, c := range chunks {
		if len(c) > 25 {
			t.Errorf("chunk %d exceeds bound: %d chars: %q", i, len(c), c)
		}
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	long := "This single sentence is far longer than the configured target size and must not be truncated."
	text := long + " Short one."
	chunks := Split(text, 20)
	if chunks[0] != long {
		t.Errorf("oversized sentence should be one chunk, got %q", chunks[0])
	}
}

func TestSplit_NoPunctuation(t *testing.T) {
	text := "no terminal punctuation here just a long run of words that exceeds the target"
	chunks := Split(text, 30)
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("text without sentence punctuation should be one chunk, got %v", chunks)
	}
}

func TestSplitSentences_PunctuationRuns(t *testing.T) {
	sentences := SplitSentences("Really?! Yes... Definitely.")
	want := []string{"Really?!", "Yes...", "Definitely."}
	if len(sentences) != len(want) {
		t.Fatalf("expected %d sentences, got %v", len(want), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], sentences[i])
		}
	}
}

func TestSplitSentences_DecimalNotSplit(t *testing.T) {
	sentences := SplitSentences("The price is 3.50 today. Enjoy.")
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %v", sentences)
	}
	if sentences[0] != "The price is 3.50 today." {
		t.Errorf("decimal point should not split, got %q", sentences[0])
	}
}

func TestMergeTail(t *testing.T) {
	chunks := []string{"a.", "b.", "c.", "d.", "e."}

	merged := MergeTail(chunks, 3)
	if len(merged) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(merged))
	}
	if merged[2] != "c. d. e." {
		t.Errorf("tail should merge overflow, got %q", merged[2])
	}

	// No-op when within the limit.
	same := MergeTail(chunks, 5)
	if len(same) != 5 {
		t.Errorf("expected untouched slice, got %d chunks", len(same))
	}
	same = MergeTail(chunks, 0)
	if len(same) != 5 {
		t.Errorf("non-positive limit should be a no-op, got %d chunks", len(same))
	}
}
