package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/group"
)

// Meta carries the run facts shown on a document's cover page.
type Meta struct {
	Caselist    string
	Mode        string
	Targets     string
	Topic       string
	Files       int
	Summary     group.Summary
	GeneratedAt time.Time
}

// Document assembles the compiled block document for one side: cover
// page, argument index, then one section per argument group with an
// attribution header above every block.
func Document(side caselist.Side, groups []group.ArgumentGroup, meta Meta) []byte {
	title := strings.TrimSpace(string(side) + " Rebuttal Blocks")

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	b.WriteString("<style>\n" + documentCSS + "</style>\n</head>\n<body>\n")

	writeCover(&b, title, meta)
	writeContents(&b, groups)
	for i, g := range groups {
		writeArgument(&b, i+1, g)
	}

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

func writeCover(b *strings.Builder, title string, meta Meta) {
	b.WriteString(`<section class="cover">` + "\n")
	b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")
	b.WriteString(`<table class="facts">`)
	row := func(key, val string) {
		if val == "" {
			return
		}
		b.WriteString("<tr><th>" + html.EscapeString(key) + "</th><td>" + html.EscapeString(val) + "</td></tr>")
	}
	row("Caselist", meta.Caselist)
	row("Mode", meta.Mode)
	row("Targets", meta.Targets)
	row("Topic filter", meta.Topic)
	row("Source files", strconv.Itoa(meta.Files))
	row("Blocks", strconv.Itoa(meta.Summary.Blocks))
	row("Arguments", strconv.Itoa(meta.Summary.Arguments))
	row("Tournaments", strconv.Itoa(meta.Summary.Tournaments))
	if !meta.GeneratedAt.IsZero() {
		row("Generated", meta.GeneratedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("</table>\n")
	if meta.Summary.UnknownSide > 0 {
		fmt.Fprintf(b, `<p class="note">%d blocks came from rounds without side data and appear in both side documents.</p>`+"\n", meta.Summary.UnknownSide)
	}
	b.WriteString("</section>\n")
}

func writeContents(b *strings.Builder, groups []group.ArgumentGroup) {
	if len(groups) == 0 {
		b.WriteString(`<p class="note">No rebuttal blocks were found for this side.</p>` + "\n")
		return
	}
	b.WriteString(`<nav class="toc"><h2>Arguments</h2><ol>`)
	for i, g := range groups {
		fmt.Fprintf(b, `<li><a href="#arg-%d">%s</a> <span class="count">(%d)</span></li>`,
			i+1, html.EscapeString(g.Name), len(g.Blocks))
	}
	b.WriteString("</ol></nav>\n")
}

func writeArgument(b *strings.Builder, n int, g group.ArgumentGroup) {
	fmt.Fprintf(b, `<section class="argument" id="arg-%d">`+"\n", n)
	fmt.Fprintf(b, `<h2>%s <span class="count">%d %s</span></h2>`+"\n",
		html.EscapeString(g.Name), len(g.Blocks), plural(len(g.Blocks), "block"))
	for _, blk := range g.Blocks {
		b.WriteString(`<div class="block">` + "\n")
		b.WriteString(attribution(blk.Source) + "\n")
		for _, line := range blk.Lines {
			b.WriteString(Line(line) + "\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</section>\n")
}

// attribution renders the provenance header shown above a block:
// who read it, where, against whom, and which file it came from.
func attribution(src caselist.SourceRecord) string {
	var b strings.Builder
	b.WriteString(`<div class="meta">`)

	origin := make([]string, 0, 4)
	if team := strings.TrimSpace(src.School + " " + src.Team); team != "" {
		origin = append(origin, team)
	}
	if src.Side != caselist.SideUnknown {
		origin = append(origin, string(src.Side))
	}
	if t := caselist.NormalizeTournament(src.Tournament); t != "" {
		origin = append(origin, t)
	}
	if src.Round != "" {
		origin = append(origin, "Round "+src.Round)
	}
	if len(origin) > 0 {
		b.WriteString(`<p class="origin">` + html.EscapeString(strings.Join(origin, " · ")) + `</p>`)
	}

	var detail []string
	if src.Opponent != "" {
		detail = append(detail, "vs "+src.Opponent)
	}
	if src.Judge != "" {
		detail = append(detail, "Judge: "+src.Judge)
	}
	if len(detail) > 0 {
		b.WriteString(`<p class="detail">` + html.EscapeString(strings.Join(detail, " · ")) + `</p>`)
	}
	if src.Report != "" {
		b.WriteString(`<p class="report">` + html.EscapeString(src.Report) + `</p>`)
	}
	if src.Path != "" {
		b.WriteString(`<p class="file">` + html.EscapeString(src.FileName()) + `</p>`)
	}

	b.WriteString(`</div>`)
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

const documentCSS = `body {
  font-family: "Calibri", "Helvetica Neue", Arial, sans-serif;
  font-size: 11pt;
  line-height: 1.35;
  color: #111;
  max-width: 52rem;
  margin: 0 auto;
  padding: 1.5rem;
}
h1 { font-size: 1.7em; margin: 0 0 .8rem; }
h2 { font-size: 1.25em; margin: 0 0 .5rem; }
.cover .facts { border-collapse: collapse; margin: .6rem 0 1rem; }
.cover .facts th { text-align: left; padding: .15rem 1.2rem .15rem 0; font-weight: 600; color: #444; }
.cover .facts td { padding: .15rem 0; }
.note { color: #8a5500; font-size: .9em; }
.toc ol { margin: .4rem 0 0 1.4rem; padding: 0; }
.toc li { margin: .15rem 0; }
.toc a { color: #0b4a8f; text-decoration: none; }
.count { font-weight: 400; color: #666; font-size: .85em; }
section.argument { margin-top: 2rem; border-top: 2px solid #333; padding-top: .5rem; break-before: page; }
.block { margin: 0 0 1.4rem; break-inside: avoid-page; }
.meta { border-left: 3px solid #999; background: #f6f6f6; padding: .25rem .6rem; margin: 1rem 0 .4rem; font-size: .85em; color: #333; }
.meta p { margin: .1em 0; }
.meta .origin { font-weight: 600; }
.meta .report { font-style: italic; }
.meta .file { color: #777; }
p.tag { font-weight: 700; font-size: 1.05em; margin: .9em 0 .25em; }
p.card { margin: .15em 0 .6em; }
.context { font-size: .95em; }
.filler { font-size: .82em; color: #555; }
@page { size: letter; margin: 18mm 16mm; }
@media print {
  body { max-width: none; padding: 0; }
}
`
