package extract

import "regexp"

// citationRe matches an evidence citation tag: an author token
// (capitalized name, optionally "et al.", "and X", or further
// capitalized words, or an all-caps acronym) followed by a two-digit
// year, optionally with a comma or apostrophe ("Hendricks 21",
// "Smith et al. '19", "EPA, 24"). Tuned against observed round
// documents; over- and under-matches outside that corpus are accepted
// as-is.
var citationRe = regexp.MustCompile(`\b(?:[A-Z][A-Za-z'’.-]+(?:\s+(?:et\s+al\.?|and\s+[A-Z][A-Za-z'’.-]+|[A-Z][A-Za-z'’.-]+)){0,3}|[A-Z]{2,}),?\s+['’]?\d{2}\b`)

// citationSpans returns the byte ranges of every citation tag in the
// paragraph text.
func citationSpans(text string) [][]int {
	return citationRe.FindAllStringIndex(text, -1)
}
