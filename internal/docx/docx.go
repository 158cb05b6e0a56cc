// Package docx reads Word documents and exposes their paragraphs, runs
// and formatting in a form the extractor can walk.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Run is a span of identically formatted text inside a paragraph.
// Formatting fields are tri-state: nil means the property is not set
// directly on the run and must be resolved through the style chain.
// Color names the highlight color or shading fill when Highlight is set.
type Run struct {
	Text      string
	StyleID   string
	Bold      *bool
	Underline *bool
	Highlight *bool
	Color     string
}

// Paragraph is a single document paragraph.
type Paragraph struct {
	StyleID string
	Runs    []Run
}

// Text returns the paragraph's rendered text: run texts joined in order.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Style is one entry from the document's style sheet.
type Style struct {
	ID        string
	Name      string
	BasedOn   string
	Bold      *bool
	Underline *bool
	Highlight *bool
	Color     string
}

// Document is a parsed .docx file. Defaults holds the run properties
// from w:docDefaults, the sheet-wide fallback under every style.
type Document struct {
	Paragraphs []Paragraph
	Styles     map[string]Style
	Defaults   Style
}

// Format is the fully resolved emphasis state of a run. Color carries
// the highlight color or shading fill when Highlight is true.
type Format struct {
	Bold      bool
	Underline bool
	Highlight bool
	Color     string
}

// styleChainLimit bounds basedOn traversal so cyclic style sheets
// cannot loop forever.
const styleChainLimit = 16

// Resolve computes the effective formatting of a run: direct run
// properties win, then the run's character style chain, then the
// paragraph style chain, then the sheet's docDefaults. A property set
// nowhere resolves to false.
func (d *Document) Resolve(p Paragraph, r Run) Format {
	f := Format{
		Bold:      d.resolveProp(p, r, func(r Run) *bool { return r.Bold }, func(s Style) *bool { return s.Bold }),
		Underline: d.resolveProp(p, r, func(r Run) *bool { return r.Underline }, func(s Style) *bool { return s.Underline }),
		Highlight: d.resolveProp(p, r, func(r Run) *bool { return r.Highlight }, func(s Style) *bool { return s.Highlight }),
	}
	if f.Highlight {
		f.Color = d.resolveColor(p, r)
	}
	return f
}

func (d *Document) resolveColor(p Paragraph, r Run) string {
	if r.Highlight != nil && *r.Highlight {
		return r.Color
	}
	for _, id := range []string{r.StyleID, p.StyleID} {
		for i := 0; id != "" && i < styleChainLimit; i++ {
			s, ok := d.Styles[id]
			if !ok {
				break
			}
			if s.Highlight != nil && *s.Highlight {
				return s.Color
			}
			id = s.BasedOn
		}
	}
	if d.Defaults.Highlight != nil && *d.Defaults.Highlight {
		return d.Defaults.Color
	}
	return ""
}

func (d *Document) resolveProp(p Paragraph, r Run, fromRun func(Run) *bool, fromStyle func(Style) *bool) bool {
	if v := fromRun(r); v != nil {
		return *v
	}
	if v := d.styleProp(r.StyleID, fromStyle); v != nil {
		return *v
	}
	if v := d.styleProp(p.StyleID, fromStyle); v != nil {
		return *v
	}
	if v := fromStyle(d.Defaults); v != nil {
		return *v
	}
	return false
}

func (d *Document) styleProp(id string, fromStyle func(Style) *bool) *bool {
	for i := 0; id != "" && i < styleChainLimit; i++ {
		s, ok := d.Styles[id]
		if !ok {
			return nil
		}
		if v := fromStyle(s); v != nil {
			return v
		}
		id = s.BasedOn
	}
	return nil
}

// HeadingLevel reports the outline level (1-9) of a paragraph whose
// style chain names a heading style, or 0 for body paragraphs.
func (d *Document) HeadingLevel(p Paragraph) int {
	id := p.StyleID
	for i := 0; id != "" && i < styleChainLimit; i++ {
		s, ok := d.Styles[id]
		if !ok {
			return headingLevelOf(id)
		}
		if lvl := headingLevelOf(s.Name); lvl > 0 {
			return lvl
		}
		if lvl := headingLevelOf(s.ID); lvl > 0 {
			return lvl
		}
		id = s.BasedOn
	}
	return headingLevelOf(id)
}

// headingLevelOf maps style names like "heading 2", "Heading2" or
// localized variants to their level. Title and Subtitle count as the
// top two levels, matching how word processors export them.
func headingLevelOf(name string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, " ", "")
	switch n {
	case "title", "titre", "titel":
		return 1
	case "subtitle", "soustitre", "untertitel":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "berschrift"} {
		idx := strings.Index(n, prefix)
		if idx < 0 {
			continue
		}
		rest := n[idx+len(prefix):]
		if rest == "" {
			continue
		}
		if lvl, err := strconv.Atoi(rest[:1]); err == nil && lvl >= 1 && lvl <= 9 {
			return lvl
		}
	}
	return 0
}

// ParseFile opens path and parses it as a .docx archive.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse reads a .docx archive from memory. It wants word/document.xml
// and, when present, word/styles.xml.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening docx archive: %w", err)
	}

	doc := &Document{Styles: map[string]Style{}}

	if f := findEntry(zr, "word/styles.xml"); f != nil {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening styles.xml: %w", err)
		}
		err = parseStyles(rc, doc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing styles.xml: %w", err)
		}
	}

	f := findEntry(zr, "word/document.xml")
	if f == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()
	if err := parseBody(rc, doc); err != nil {
		return nil, fmt.Errorf("parsing document.xml: %w", err)
	}
	return doc, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// parseStyles walks word/styles.xml collecting per-style formatting
// defaults, basedOn links, and the docDefaults run properties. props
// points at whichever style currently receives run properties: the
// open w:style inside its rPr, or Defaults inside w:rPrDefault. The
// rPr a pPrDefault may carry styles the paragraph mark, not runs, and
// is left alone.
func parseStyles(r io.Reader, doc *Document) error {
	dec := xml.NewDecoder(r)

	var cur, props *Style
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "style":
				cur = &Style{ID: attr(t, "styleId")}
			case "name":
				if cur != nil && cur.Name == "" {
					cur.Name = attr(t, "val")
				}
			case "basedOn":
				if cur != nil {
					cur.BasedOn = attr(t, "val")
				}
			case "rPrDefault":
				props = &doc.Defaults
			case "rPr":
				if props == nil && cur != nil {
					props = cur
				}
			case "b":
				if props != nil {
					props.Bold = boolVal(attr(t, "val"))
				}
			case "u":
				if props != nil {
					props.Underline = underlineVal(attr(t, "val"))
				}
			case "highlight":
				if props != nil {
					props.Highlight, props.Color = applyHighlight(props.Highlight, props.Color, attr(t, "val"))
				}
			case "shd":
				if props != nil {
					props.Highlight, props.Color = applyShade(props.Highlight, props.Color, attr(t, "fill"))
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "rPrDefault":
				props = nil
			case "rPr":
				if cur != nil && props == cur {
					props = nil
				}
			case "style":
				if cur != nil && cur.ID != "" {
					doc.Styles[cur.ID] = *cur
				}
				cur = nil
			}
		}
	}
	return nil
}

// parseBody walks word/document.xml emitting paragraphs and runs. The
// rPr block under pPr describes the paragraph mark, not any run, so
// run properties are only honored while inside a w:r element.
func parseBody(r io.Reader, doc *Document) error {
	dec := xml.NewDecoder(r)

	var (
		para    *Paragraph
		run     *Run
		text    strings.Builder
		inText  bool
		inProps bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para = &Paragraph{}
			case "pStyle":
				if para != nil && run == nil {
					para.StyleID = attr(t, "val")
				}
			case "r":
				if para != nil {
					run = &Run{}
					text.Reset()
				}
			case "rPr":
				inProps = run != nil
			case "rStyle":
				if inProps {
					run.StyleID = attr(t, "val")
				}
			case "b":
				if inProps {
					run.Bold = boolVal(attr(t, "val"))
				}
			case "u":
				if inProps {
					run.Underline = underlineVal(attr(t, "val"))
				}
			case "highlight":
				if inProps {
					run.Highlight, run.Color = applyHighlight(run.Highlight, run.Color, attr(t, "val"))
				}
			case "shd":
				if inProps {
					run.Highlight, run.Color = applyShade(run.Highlight, run.Color, attr(t, "fill"))
				}
			case "t":
				inText = run != nil
			case "tab":
				if run != nil {
					text.WriteByte('\t')
				}
			case "br", "cr":
				if run != nil {
					text.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inProps = false
			case "r":
				if para != nil && run != nil {
					run.Text = text.String()
					if run.Text != "" {
						para.Runs = append(para.Runs, *run)
					}
				}
				run = nil
			case "p":
				if para != nil {
					doc.Paragraphs = append(doc.Paragraphs, *para)
				}
				para = nil
			}
		}
	}
	return nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// boolVal interprets an OOXML on/off attribute. An absent value means
// the element itself switches the property on.
func boolVal(v string) *bool {
	switch strings.ToLower(v) {
	case "", "1", "true", "on":
		return boolPtr(true)
	case "0", "false", "off", "none":
		return boolPtr(false)
	}
	return boolPtr(true)
}

// underlineVal interprets w:u, whose val names an underline pattern
// rather than an on/off switch.
func underlineVal(v string) *bool {
	switch strings.ToLower(v) {
	case "none", "0", "false":
		return boolPtr(false)
	}
	return boolPtr(true)
}

// applyHighlight folds a w:highlight marker, whose val names a color,
// into the current highlight state. "none" only switches the property
// off when no shading already switched it on.
func applyHighlight(cur *bool, color, val string) (*bool, string) {
	switch strings.ToLower(val) {
	case "", "none":
		if cur != nil && *cur {
			return cur, color
		}
		return boolPtr(false), ""
	}
	return boolPtr(true), val
}

// applyShade folds a w:shd fill into the current highlight state. A
// visible fill counts as a highlight even if w:highlight says none; an
// explicit highlight color is never displaced by a fill.
func applyShade(cur *bool, color, fill string) (*bool, string) {
	if !meaningfulShade(fill) {
		return cur, color
	}
	if color == "" {
		color = fill
	}
	return boolPtr(true), color
}

// meaningfulShade reports whether a w:shd fill reads as a visible
// background. Plain white and "auto" do not.
func meaningfulShade(fill string) bool {
	switch strings.ToLower(strings.TrimSpace(fill)) {
	case "", "auto", "none", "ffffff", "fff", "white":
		return false
	}
	return true
}

func boolPtr(b bool) *bool { return &b }
