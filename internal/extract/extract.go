// Package extract walks parsed round documents and pulls out the
// rebuttal blocks: named units of answer evidence under "AT:"-style
// headings, with every text run classified into a reading tier.
package extract

import (
	"strings"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/docx"
)

// Tier is how prominently a fragment was marked for reading aloud.
type Tier int

const (
	TierFiller Tier = iota
	TierContext
	TierRead
)

// Class returns the tier's stylesheet class name.
func (t Tier) Class() string {
	switch t {
	case TierRead:
		return "read"
	case TierContext:
		return "context"
	default:
		return "filler"
	}
}

// TierOf classifies resolved run formatting. Highlighting is the
// strongest signal and overrides the run's own bold/underline flags.
func TierOf(f docx.Format) Tier {
	switch {
	case f.Highlight:
		return TierRead
	case f.Bold && f.Underline:
		return TierRead
	case f.Underline:
		return TierContext
	default:
		return TierFiller
	}
}

// Fragment is a stretch of identically classified text. Highlight
// carries the color name or hex fill when the source run was
// highlighted.
type Fragment struct {
	Text      string
	Tier      Tier
	Highlight string
}

// StyledLine is one rendered paragraph. Tag lines are card tags from
// level-4 headings and render distinctly.
type StyledLine struct {
	Tag       bool
	Fragments []Fragment
}

// Text returns the line's plain text.
func (l StyledLine) Text() string {
	var b strings.Builder
	for _, f := range l.Fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}

// Block is one extracted answer block.
type Block struct {
	Argument string
	Lines    []StyledLine
	Source   caselist.SourceRecord
}

type state int

const (
	stateOutside state = iota
	stateInRebuttal
	stateInBlock
)

// Extractor is the document walk state machine. It holds only the
// current section state, the defense-mode flag, and the block being
// accumulated.
type Extractor struct {
	doc     *docx.Document
	source  caselist.SourceRecord
	state   state
	defense bool
	name    string
	lines   []StyledLine
	blocks  []Block
}

// ExtractDocument walks a parsed document and returns its blocks in
// document order.
func ExtractDocument(doc *docx.Document, source caselist.SourceRecord) []Block {
	e := &Extractor{doc: doc, source: source}
	for _, p := range doc.Paragraphs {
		e.feed(p)
	}
	e.flush()
	return e.blocks
}

// ExtractBytes parses raw .docx bytes and extracts. Parse failures
// are returned to the caller, which logs and moves on; one bad
// document never aborts a batch.
func ExtractBytes(data []byte, source caselist.SourceRecord) ([]Block, error) {
	doc, err := docx.Parse(data)
	if err != nil {
		return nil, err
	}
	return ExtractDocument(doc, source), nil
}

func (e *Extractor) feed(p docx.Paragraph) {
	text := strings.TrimSpace(p.Text())
	if level := e.doc.HeadingLevel(p); level > 0 {
		e.heading(text, level)
		return
	}
	e.body(p, text)
}

func (e *Extractor) heading(text string, level int) {
	h := ClassifyHeading(text)
	switch h.Kind {
	case HeadingConstructive:
		e.flush()
		e.state = stateOutside
		e.defense = false
	case HeadingRebuttal:
		e.flush()
		e.state = stateInRebuttal
		e.defense = false
	case HeadingDefense:
		e.flush()
		e.state = stateInRebuttal
		e.defense = true
	case HeadingBlockName:
		if e.state == stateOutside {
			return
		}
		e.flush()
		e.open(h.Name)
	case HeadingGroupLabel:
		// A bare "AT:" groups the headings under it; the sub-headings
		// carry the names, so the label itself moves nothing.
	case HeadingNone:
		if e.state == stateOutside {
			return
		}
		if e.defense && level >= 2 && level <= 4 {
			// Defense sections name blocks with unprefixed headings.
			if name := normalizeBlockName(text); name != "" {
				e.flush()
				e.open(name)
			}
			return
		}
		if e.state == stateInBlock && level == 4 && text != "" {
			e.lines = append(e.lines, tagLine(text))
		}
	}
}

func (e *Extractor) body(p docx.Paragraph, text string) {
	if text == "" {
		return
	}
	// Section labels written as plain paragraphs still move the
	// machine; flat documents have no heading styles at all.
	if kind, ok := classifyPlainLabel(text); ok {
		e.flush()
		if kind == HeadingRebuttal {
			e.state = stateInRebuttal
		} else {
			e.state = stateOutside
		}
		e.defense = false
		return
	}
	if e.state == stateOutside {
		return
	}
	if h := ClassifyHeading(text); h.Kind == HeadingBlockName {
		e.flush()
		e.open(h.Name)
		return
	}
	if e.state != stateInBlock {
		return
	}
	line := e.renderBody(p)
	if strings.TrimSpace(line.Text()) == "" {
		return
	}
	e.lines = append(e.lines, line)
}

func (e *Extractor) open(name string) {
	e.name = name
	e.lines = nil
	e.state = stateInBlock
}

// flush finalizes the open block. Unnamed or empty blocks are
// discarded silently.
func (e *Extractor) flush() {
	if e.state == stateInBlock && e.name != "" && len(e.lines) > 0 {
		e.blocks = append(e.blocks, Block{Argument: e.name, Lines: e.lines, Source: e.source})
	}
	e.name = ""
	e.lines = nil
	if e.state == stateInBlock {
		e.state = stateInRebuttal
	}
}

func tagLine(text string) StyledLine {
	return StyledLine{Tag: true, Fragments: []Fragment{{Text: text, Tier: TierRead}}}
}

// renderBody classifies a body paragraph's runs into fragments.
// Citation tags force READ regardless of run formatting; a run
// straddling a citation boundary is split at it.
func (e *Extractor) renderBody(p docx.Paragraph) StyledLine {
	spans := citationSpans(p.Text())
	var frags []Fragment
	off := 0
	for _, r := range p.Runs {
		f := e.doc.Resolve(p, r)
		base := TierOf(f)
		color := ""
		if f.Highlight {
			color = f.Color
		}
		for _, seg := range splitBySpans(r.Text, off, spans) {
			tier := base
			if seg.cited {
				tier = TierRead
			}
			frags = append(frags, Fragment{Text: seg.text, Tier: tier, Highlight: color})
		}
		off += len(r.Text)
	}
	return StyledLine{Fragments: mergeFragments(frags)}
}

type segment struct {
	text  string
	cited bool
}

// splitBySpans cuts a run's text at the citation boundaries that fall
// inside it. off is the run's byte offset in the paragraph text;
// spans are paragraph-relative and ordered.
func splitBySpans(text string, off int, spans [][]int) []segment {
	if len(spans) == 0 {
		return []segment{{text: text}}
	}
	var segs []segment
	end := off + len(text)
	pos := off
	for _, span := range spans {
		s, t := span[0], span[1]
		if t <= pos || s >= end {
			continue
		}
		if s > pos {
			segs = append(segs, segment{text: text[pos-off : s-off]})
			pos = s
		}
		if t > end {
			t = end
		}
		segs = append(segs, segment{text: text[pos-off : t-off], cited: true})
		pos = t
	}
	if pos < end {
		segs = append(segs, segment{text: text[pos-off:]})
	}
	return segs
}

// mergeFragments joins adjacent fragments with identical styling and
// drops empty ones.
func mergeFragments(frags []Fragment) []Fragment {
	var out []Fragment
	for _, f := range frags {
		if f.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Tier == f.Tier && out[n-1].Highlight == f.Highlight {
			out[n-1].Text += f.Text
			continue
		}
		out = append(out, f)
	}
	return out
}
