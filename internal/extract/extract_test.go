package extract

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/docx"
)

func on() *bool  { v := true; return &v }
func off() *bool { v := false; return &v }

func heading(level int, text string) docx.Paragraph {
	return docx.Paragraph{StyleID: fmt.Sprintf("Heading%d", level), Runs: []docx.Run{{Text: text}}}
}

func plain(text string) docx.Paragraph {
	return docx.Paragraph{Runs: []docx.Run{{Text: text}}}
}

func para(runs ...docx.Run) docx.Paragraph {
	return docx.Paragraph{Runs: runs}
}

func document(paras ...docx.Paragraph) *docx.Document {
	return &docx.Document{Paragraphs: paras}
}

var testSource = caselist.SourceRecord{School: "Westwood", Team: "AB", Path: "2025/Westwood/AB/doc.docx"}

func TestTierOf(t *testing.T) {
	cases := []struct {
		name string
		f    docx.Format
		want Tier
	}{
		{"highlight alone", docx.Format{Highlight: true}, TierRead},
		{"highlight beats plain", docx.Format{Highlight: true, Bold: false, Underline: false}, TierRead},
		{"bold and underline", docx.Format{Bold: true, Underline: true}, TierRead},
		{"underline only", docx.Format{Underline: true}, TierContext},
		{"bold only", docx.Format{Bold: true}, TierFiller},
		{"nothing", docx.Format{}, TierFiller},
	}
	for _, tc := range cases {
		if got := TierOf(tc.f); got != tc.want {
			t.Errorf("%s: TierOf = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestClassifyHeading(t *testing.T) {
	cases := []struct {
		in   string
		want Heading
	}{
		{"AT: States", Heading{Kind: HeadingBlockName, Name: "States"}},
		{"A2: Spending", Heading{Kind: HeadingBlockName, Name: "Spending"}},
		{"A/2 Warming", Heading{Kind: HeadingBlockName, Name: "Warming"}},
		{"Answers to: Immigration", Heading{Kind: HeadingBlockName, Name: "Immigration"}},
		{"Answers To Immigration", Heading{Kind: HeadingBlockName, Name: "Immigration"}},
		{"at - Cap K", Heading{Kind: HeadingBlockName, Name: "Cap K"}},
		// Embedded speech label: still a block name, never a section
		// transition.
		{"2AC---AT: Cap K Links", Heading{Kind: HeadingBlockName, Name: "Cap K Links"}},
		{"1NR — AT: Warming", Heading{Kind: HeadingBlockName, Name: "Warming"}},
		// Trailing speech-label and filing qualifiers come off.
		{"AT: States—2AC", Heading{Kind: HeadingBlockName, Name: "States"}},
		{"AT: Warming-Extra", Heading{Kind: HeadingBlockName, Name: "Warming"}},
		{"AT: Cap K - Topshelf", Heading{Kind: HeadingBlockName, Name: "Cap K"}},
		// Ordinary hyphenated names are left alone.
		{"AT: Econ Decline DA - Long", Heading{Kind: HeadingBlockName, Name: "Econ Decline DA - Long"}},
		{"AT: (States)", Heading{Kind: HeadingBlockName, Name: "States"}},
		// Prefix with nothing after it is a group label.
		{"AT:", Heading{Kind: HeadingGroupLabel}},
		{"2AC — AT:", Heading{Kind: HeadingGroupLabel}},
		// Section labels.
		{"2NC", Heading{Kind: HeadingRebuttal}},
		{"2AC Round 3 vs Greenhill", Heading{Kind: HeadingRebuttal}},
		{"1AR", Heading{Kind: HeadingRebuttal}},
		{"Frontlines", Heading{Kind: HeadingRebuttal}},
		{"Blocks", Heading{Kind: HeadingRebuttal}},
		{"Rebuttals:", Heading{Kind: HeadingRebuttal}},
		{"1AC", Heading{Kind: HeadingConstructive}},
		{"1NC Shell", Heading{Kind: HeadingConstructive}},
		{"Case", Heading{Kind: HeadingConstructive}},
		{"Defense", Heading{Kind: HeadingDefense}},
		{"Extensions", Heading{Kind: HeadingDefense}},
		// Word labels only match whole headings.
		{"Case Outline Notes", Heading{Kind: HeadingNone}},
		{"Impact Calculus", Heading{Kind: HeadingNone}},
		{"ATTENTION", Heading{Kind: HeadingNone}},
		{"", Heading{Kind: HeadingNone}},
	}
	for _, tc := range cases {
		if got := ClassifyHeading(tc.in); got != tc.want {
			t.Errorf("ClassifyHeading(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestCitationSpans(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Hendricks 21 argues that markets fail.", []string{"Hendricks 21"}},
		{"States solve the case. Donnelly 23 says otherwise.", []string{"Donnelly 23"}},
		{"Smith et al. 19 and Garcia '22 agree.", []string{"Smith et al. 19", "Garcia '22"}},
		{"Smith and Jones 20 find no effect.", []string{"Smith and Jones 20"}},
		{"EPA 24 reports rising emissions.", []string{"EPA 24"}},
		{"Brown, 18 concludes.", []string{"Brown, 18"}},
		// Four-digit years are not citation tags.
		{"Donnelly 2023 says otherwise.", nil},
		// Lowercase text never matches.
		{"the fifty states solve 99 percent of it", nil},
		{"Fifty States CP solves the whole aff", nil},
	}
	for _, tc := range cases {
		var got []string
		for _, span := range citationSpans(tc.text) {
			got = append(got, tc.text[span[0]:span[1]])
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("citationSpans(%q) mismatch (-want +got):\n%s", tc.text, diff)
		}
	}
}

func TestCitationOverrideSplitsRun(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: Markets"),
		para(docx.Run{Text: "Hendricks 21 argues that markets fail."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	want := []Fragment{
		{Text: "Hendricks 21", Tier: TierRead},
		{Text: " argues that markets fail.", Tier: TierFiller},
	}
	if diff := cmp.Diff(want, blocks[0].Lines[0].Fragments); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestCitationOverrideAcrossRuns(t *testing.T) {
	// The citation straddles a run boundary; both halves are forced
	// READ and merge back into one fragment.
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: States"),
		para(
			docx.Run{Text: "States solve the case. Donn"},
			docx.Run{Text: "elly 23 says otherwise."},
		),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	want := []Fragment{
		{Text: "States solve the case. ", Tier: TierFiller},
		{Text: "Donnelly 23", Tier: TierRead},
		{Text: " says otherwise.", Tier: TierFiller},
	}
	if diff := cmp.Diff(want, blocks[0].Lines[0].Fragments); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestEndToEndScenario(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: States"),
		heading(4, "1. Turn"),
		para(docx.Run{Text: "States solve the case. Donnelly 23 says otherwise."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected exactly 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Argument != "States" {
		t.Errorf("expected argument 'States', got %q", b.Argument)
	}
	if len(b.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(b.Lines))
	}
	if !b.Lines[0].Tag || b.Lines[0].Text() != "1. Turn" {
		t.Errorf("expected tag line '1. Turn', got %+v", b.Lines[0])
	}
	if b.Lines[1].Tag {
		t.Error("expected body line, got tag")
	}
	foundRead := false
	for _, f := range b.Lines[1].Fragments {
		if f.Text == "Donnelly 23" && f.Tier == TierRead {
			foundRead = true
		}
	}
	if !foundRead {
		t.Errorf("expected 'Donnelly 23' forced to READ, got %+v", b.Lines[1].Fragments)
	}
	if b.Source.Path != testSource.Path {
		t.Error("expected source record carried through")
	}
}

func TestNoMarkersYieldsNothing(t *testing.T) {
	doc := document(
		heading(1, "Contention One"),
		para(docx.Run{Text: "AT: This looks like a block name but we are outside."}),
		heading(3, "AT: States"),
		para(docx.Run{Text: "Body text."}),
	)

	if blocks := ExtractDocument(doc, testSource); len(blocks) != 0 {
		t.Errorf("expected no blocks without section markers, got %d", len(blocks))
	}
}

func TestConstructiveSectionExcluded(t *testing.T) {
	doc := document(
		heading(1, "1AC"),
		heading(3, "AT: Spending"),
		para(docx.Run{Text: "Constructive material."}),
		heading(1, "2AC"),
		heading(3, "AT: Spending"),
		para(docx.Run{Text: "Rebuttal material."}),
		heading(1, "1NC"),
		heading(3, "AT: Warming"),
		para(docx.Run{Text: "Back outside again."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Argument != "Spending" || blocks[0].Lines[0].Text() != "Rebuttal material." {
		t.Errorf("unexpected block %+v", blocks[0])
	}
}

func TestDefenseModeImplicitNames(t *testing.T) {
	doc := document(
		heading(1, "Extensions"),
		heading(2, "Warming Defense"),
		para(docx.Run{Text: "No tipping point."}),
		heading(2, "Econ Defense"),
		para(docx.Run{Text: "Resilient markets."}),
		// An explicit prefix still wins inside defense mode.
		heading(2, "AT: Cap K"),
		para(docx.Run{Text: "Perm solves."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	names := []string{blocks[0].Argument, blocks[1].Argument, blocks[2].Argument}
	want := []string{"Warming Defense", "Econ Defense", "Cap K"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("block names mismatch (-want +got):\n%s", diff)
	}
}

func TestDefenseModeClearedByRebuttal(t *testing.T) {
	doc := document(
		heading(1, "Defense"),
		heading(2, "Warming Defense"),
		para(docx.Run{Text: "No impact."}),
		heading(1, "2NC"),
		// Defense mode is gone, so a plain level-2 heading no longer
		// names a block.
		heading(2, "Pocket One"),
		heading(3, "AT: States"),
		para(docx.Run{Text: "Fed key."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Argument != "Warming Defense" || blocks[1].Argument != "States" {
		t.Errorf("unexpected names %q, %q", blocks[0].Argument, blocks[1].Argument)
	}
}

func TestFlatDocumentPlainLabels(t *testing.T) {
	doc := document(
		plain("2AC"),
		plain("AT: States"),
		plain("Fed action is key."),
		plain("1NC"),
		plain("This constructive text is ignored."),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Argument != "States" || len(blocks[0].Lines) != 1 {
		t.Errorf("unexpected block %+v", blocks[0])
	}
}

func TestCardTagKeepsBlockOpen(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: States"),
		para(docx.Run{Text: "First answer."}),
		heading(4, "2. No solvency"),
		para(docx.Run{Text: "Second answer."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if len(blocks[0].Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(blocks[0].Lines))
	}
	if blocks[0].Lines[1].Tag == false || blocks[0].Lines[1].Text() != "2. No solvency" {
		t.Errorf("expected middle line to be the card tag, got %+v", blocks[0].Lines[1])
	}
}

func TestGroupLabelDoesNotCloseBlock(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: States"),
		para(docx.Run{Text: "First."}),
		heading(3, "AT:"),
		para(docx.Run{Text: "Second."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if len(blocks[0].Lines) != 2 {
		t.Errorf("expected the group label to leave the block open, got %d lines", len(blocks[0].Lines))
	}
}

func TestEmptyBlocksDiscarded(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: Empty"),
		para(docx.Run{Text: "   "}),
		heading(3, "AT: Real"),
		para(docx.Run{Text: "Content."}),
	)

	blocks := ExtractDocument(doc, testSource)
	if len(blocks) != 1 {
		t.Fatalf("expected empty block to be discarded, got %d blocks", len(blocks))
	}
	if blocks[0].Argument != "Real" {
		t.Errorf("expected 'Real', got %q", blocks[0].Argument)
	}
	for _, b := range blocks {
		if b.Argument == "" || len(b.Lines) == 0 {
			t.Errorf("invariant violated: block %+v", b)
		}
	}
}

func TestHighlightCarriesColor(t *testing.T) {
	doc := document(
		heading(1, "2NC"),
		heading(3, "AT: Warming"),
		para(
			docx.Run{Text: "warming is real", Highlight: on(), Color: "yellow"},
			docx.Run{Text: " and the rest is context", Underline: on()},
		),
	)

	blocks := ExtractDocument(doc, testSource)
	line := blocks[0].Lines[0]
	want := []Fragment{
		{Text: "warming is real", Tier: TierRead, Highlight: "yellow"},
		{Text: " and the rest is context", Tier: TierContext},
	}
	if diff := cmp.Diff(want, line.Fragments); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectOffBeatsInheritedOn(t *testing.T) {
	// The paragraph style turns bold+underline on; the run switches
	// bold off directly, dropping it to CONTEXT.
	doc := &docx.Document{
		Styles: map[string]docx.Style{
			"Emphied": {ID: "Emphied", Bold: on(), Underline: on()},
		},
		Paragraphs: []docx.Paragraph{
			{StyleID: "Heading1", Runs: []docx.Run{{Text: "2NC"}}},
			{StyleID: "Heading3", Runs: []docx.Run{{Text: "AT: States"}}},
			{StyleID: "Emphied", Runs: []docx.Run{
				{Text: "still read"},
				{Text: "context now", Bold: off()},
			}},
		},
	}

	blocks := ExtractDocument(doc, testSource)
	frags := blocks[0].Lines[0].Fragments
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Tier != TierRead {
		t.Errorf("expected inherited bold+underline to read, got %v", frags[0].Tier)
	}
	if frags[1].Tier != TierContext {
		t.Errorf("expected direct bold=off to drop to context, got %v", frags[1].Tier)
	}
}

func TestExtractBytesRejectsGarbage(t *testing.T) {
	if _, err := ExtractBytes([]byte("not a zip archive"), testSource); err == nil {
		t.Error("expected error for malformed document bytes")
	}
}
