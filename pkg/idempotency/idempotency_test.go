package idempotency

import (
	"strings"
	"testing"
)

func TestNewKeyShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewKey()
		if err != nil {
			t.Fatalf("NewKey() error = %v", err)
		}
		if len(key) != KeyLength {
			t.Fatalf("len(key) = %d, want %d", len(key), KeyLength)
		}
		if !strings.HasPrefix(key, "RQ") {
			t.Fatalf("key = %q, want RQ prefix", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

// TestRequestIDRoundtrip is the quantified invariant of spec.md §8 item 9:
// extract(mark(s, id)) == id for any request_id produced by the generator
// and any original comment s, possibly empty.
func TestRequestIDRoundtrip(t *testing.T) {
	comments := []string{"", "buy EURUSD", strings.Repeat("x", 50), "short|already|piped"}

	for _, original := range comments {
		id, err := NewKey()
		if err != nil {
			t.Fatal(err)
		}
		marked := Mark(original, id)
		if len(marked) > MaxCommentLength {
			t.Errorf("marked comment %q exceeds %d chars", marked, MaxCommentLength)
		}

		got, ok := Extract(marked)
		if !ok {
			t.Fatalf("Extract(%q) failed to find key", marked)
		}
		if got != id {
			t.Errorf("Extract(Mark(%q, %q)) = %q, want %q", original, id, got, id)
		}
	}
}

func TestExtractRejectsUnprefixedComment(t *testing.T) {
	if _, ok := Extract("xyz not prefixed"); ok {
		t.Error("expected Extract to fail on a comment without the RQ prefix")
	}
}

func TestExtractRejectsNonHexTrailer(t *testing.T) {
	if _, ok := Extract("RQ" + strings.Repeat("z", 16)); ok {
		t.Error("expected Extract to fail when the trailing 16 chars are not hex")
	}
}

func TestExtractRejectsWrongLength(t *testing.T) {
	if _, ok := Extract("RQ12345"); ok {
		t.Error("expected Extract to fail on a too-short key")
	}
	if _, ok := Extract("RQ" + strings.Repeat("a", 20)); ok {
		t.Error("expected Extract to fail on a too-long key")
	}
}

func TestMarkEmptyCommentIsJustTheKey(t *testing.T) {
	id, _ := NewKey()
	if got := Mark("", id); got != id {
		t.Errorf("Mark(\"\", id) = %q, want %q", got, id)
	}
}

func TestMarkTruncatesLongOriginalComment(t *testing.T) {
	id, _ := NewKey()
	original := strings.Repeat("a", 100)
	marked := Mark(original, id)
	if len(marked) > MaxCommentLength {
		t.Errorf("len(marked) = %d, want <= %d", len(marked), MaxCommentLength)
	}
	if !strings.HasPrefix(marked, id+"|") {
		t.Errorf("marked = %q, want prefix %q", marked, id+"|")
	}
}
