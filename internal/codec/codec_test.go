package codec_test

import (
	"reflect"
	"testing"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
)

// ───── Render ─────

func TestRenderEmptySequenceIsLineBreak(t *testing.T) {
	if got := codec.Render(nil); got != "<br>" {
		t.Fatalf("expected <br>, got %q", got)
	}
}

func TestRenderNestsBoldItalicUnderline(t *testing.T) {
	got := codec.Render([]domain.TextSegment{
		{Text: "plain "},
		{Text: "all", Bold: true, Italic: true, Underline: true},
	})
	want := "plain <u><em><strong>all</strong></em></u>"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderEscapesText(t *testing.T) {
	got := codec.Render([]domain.TextSegment{{Text: "a < b & c"}})
	if got != "a &lt; b &amp; c" {
		t.Fatalf("unexpected markup %q", got)
	}
}

// ───── Parse ─────

func TestParseEmptyInputs(t *testing.T) {
	for _, in := range []string{"", "<br>", "   "} {
		got := codec.Parse(in)
		if len(got) != 1 || got[0] != (domain.TextSegment{}) {
			t.Errorf("Parse(%q) = %+v, want one empty segment", in, got)
		}
	}
}

func TestParseAccumulatesNestedFlags(t *testing.T) {
	got := codec.Parse("<b>bold <i>both</i></b><span><u>under</u></span>")
	want := []domain.TextSegment{
		{Text: "bold ", Bold: true},
		{Text: "both", Bold: true, Italic: true},
		{Text: "under", Underline: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseLegacyAndSemanticSpellings(t *testing.T) {
	a := codec.Parse("<strong>x</strong><em>y</em>")
	b := codec.Parse("<b>x</b><i>y</i>")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("spellings differ: %+v vs %+v", a, b)
	}
}

func TestParseDropsWhitespaceOnlyNodes(t *testing.T) {
	got := codec.Parse("<b>a</b> <i>b</i>")
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "b" {
		t.Fatalf("expected whitespace node dropped, got %+v", got)
	}
}

func TestParseIgnoresChildlessElements(t *testing.T) {
	got := codec.Parse("one<strong></strong><img src=x>two")
	if domain.PlainText(got) != "onetwo" {
		t.Fatalf("unexpected text %q", domain.PlainText(got))
	}
	for _, s := range got {
		if s.Bold {
			t.Fatalf("childless element applied a flag: %+v", got)
		}
	}
}

func TestLeavesKeepWhitespace(t *testing.T) {
	got := codec.Leaves("<b>a</b> <i>b</i>")
	if len(got) != 3 || got[1].Text != " " {
		t.Fatalf("expected three leaves, got %+v", got)
	}
}

// ───── Round trip ─────

func TestRoundTripMergesAdjacentRuns(t *testing.T) {
	in := []domain.TextSegment{
		{Text: "Hello "},
		{Text: "big", Bold: true},
		{Text: " and", Bold: true},
		{Text: " world", Italic: true, Underline: true},
	}
	got := domain.MergeRuns(codec.Parse(codec.Render(in)))
	want := domain.MergeRuns(in)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

// ───── Paste ─────

func TestNormalizePaste(t *testing.T) {
	cases := map[string]string{
		"  hello\r\n\r\nworld  ":             "hello world",
		"<b>bold</b>\t\ttext":                "bold text",
		"<script>alert(1)</script>safe & ok": "safe & ok",
		"\n\n":                               "",
	}
	for in, want := range cases {
		if got := codec.NormalizePaste(in); got != want {
			t.Errorf("NormalizePaste(%q) = %q, want %q", in, got, want)
		}
	}
}
