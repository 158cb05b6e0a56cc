// Package render turns styled lines into the HTML the compiled block
// documents are built from.
package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/extract"
)

// linePolicy admits exactly the markup the adapter emits. Every
// rendered line is checked against it; a line the policy would
// rewrite falls back to escaped plain text instead of shipping
// something the sanitizer disagrees with.
var linePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "span", "b", "u", "br")
	p.AllowAttrs("class").OnElements("p", "span")
	p.AllowStyles("background-color").OnElements("span")
	return p
}()

// highlightHex maps the OOXML highlight palette to hex. Shading fills
// arrive as raw hex and pass through; anything unrecognized renders
// without a background rather than guessing.
var highlightHex = map[string]string{
	"yellow":      "#ffff00",
	"green":       "#00ff00",
	"cyan":        "#00ffff",
	"magenta":     "#ff00ff",
	"blue":        "#0000ff",
	"red":         "#ff0000",
	"darkBlue":    "#00008b",
	"darkCyan":    "#008b8b",
	"darkGreen":   "#006400",
	"darkMagenta": "#8b008b",
	"darkRed":     "#8b0000",
	"darkYellow":  "#808000",
	"darkGray":    "#a9a9a9",
	"lightGray":   "#d3d3d3",
	"black":       "#000000",
	"white":       "#ffffff",
}

var hexFillRe = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

func highlightColor(c string) string {
	if c == "" {
		return ""
	}
	if hexFillRe.MatchString(c) {
		return "#" + strings.ToLower(c)
	}
	return highlightHex[c]
}

// Line renders one styled line as an HTML paragraph. Tag lines become
// card tags; body lines carry one span per fragment with the tier's
// markup. If the emitted markup does not survive the policy verbatim,
// the line degrades to escaped plain text.
func Line(l extract.StyledLine) string {
	var markup string
	if l.Tag {
		markup = `<p class="tag">` + escapeText(l.Text()) + `</p>`
	} else {
		var b strings.Builder
		b.WriteString(`<p class="card">`)
		for _, f := range l.Fragments {
			b.WriteString(fragmentHTML(f))
		}
		b.WriteString(`</p>`)
		markup = b.String()
	}
	if linePolicy.Sanitize(markup) != markup {
		return "<p>" + html.EscapeString(l.Text()) + "</p>"
	}
	return markup
}

func fragmentHTML(f extract.Fragment) string {
	var b strings.Builder
	b.WriteString(`<span class="`)
	b.WriteString(f.Tier.Class())
	b.WriteString(`"`)
	if c := highlightColor(f.Highlight); c != "" {
		// The space after the colon matches how the sanitizer
		// re-serializes styles, keeping the verbatim check meaningful.
		b.WriteString(` style="background-color: `)
		b.WriteString(c)
		b.WriteString(`"`)
	}
	b.WriteString(`>`)

	text := escapeText(f.Text)
	switch f.Tier {
	case extract.TierRead:
		b.WriteString("<b><u>" + text + "</u></b>")
	case extract.TierContext:
		b.WriteString("<u>" + text + "</u>")
	default:
		b.WriteString(text)
	}
	b.WriteString(`</span>`)
	return b.String()
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
