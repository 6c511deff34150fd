package ingest

import "testing"

func TestSplitSegmentsAlternatesTextAndMath(t *testing.T) {
	segs := splitSegments("before [imath]a+b[/imath] after")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].isMath || segs[0].text != "before " {
		t.Fatalf("expected segment 0 to be leading text, got %+v", segs[0])
	}
	if !segs[1].isMath || segs[1].text != "a+b" {
		t.Fatalf("expected segment 1 to be the math body, got %+v", segs[1])
	}
	if segs[2].isMath || segs[2].text != " after" {
		t.Fatalf("expected segment 2 to be trailing text, got %+v", segs[2])
	}
}

func TestSplitSegmentsUnterminatedMarkerIsTreatedAsText(t *testing.T) {
	segs := splitSegments("before [imath]unterminated")
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[1].isMath {
		t.Fatalf("expected the unterminated remainder to be treated as plain text, got %+v", segs[1])
	}
}

func TestSplitSegmentsPlainTextOnly(t *testing.T) {
	segs := splitSegments("just words")
	if len(segs) != 1 || segs[0].isMath {
		t.Fatalf("expected a single plain-text segment, got %+v", segs)
	}
}

func TestSplitSegmentsEmptyBody(t *testing.T) {
	if segs := splitSegments(""); len(segs) != 0 {
		t.Fatalf("expected no segments for an empty body, got %+v", segs)
	}
}

func TestTokenizeLowercasesAndSplitsOnPunctuation(t *testing.T) {
	got := tokenize("Hello, World! 123")
	want := []string{"hello", "world", "123"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestTokenizeEmptyStringYieldsNoTokens(t *testing.T) {
	if got := tokenize("   "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}
