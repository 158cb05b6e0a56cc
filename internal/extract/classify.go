package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// HeadingKind tags what a heading (or label-like body paragraph)
// means to the extractor.
type HeadingKind int

const (
	HeadingNone HeadingKind = iota
	HeadingBlockName
	HeadingGroupLabel
	HeadingRebuttal
	HeadingConstructive
	HeadingDefense
)

// Heading is the classification of one heading. Name is set only for
// HeadingBlockName.
type Heading struct {
	Kind HeadingKind
	Name string
}

// blockPrefixRe matches the answer-block prefixes the community uses:
// "AT:", "A2:", "A/2", "Answers to:", each optionally preceded by an
// embedded speech label ("2AC---AT: Cap K").
var blockPrefixRe = regexp.MustCompile(`(?i)^(?:[12]\s*[acnr]{1,2}\s*(?::|[-–—]+|\s)\s*)?(?:at\s*(?::|[-–—]+)|a2\s*(?::|[-–—]+)|a/2\s*(?::|[-–—]+)?|answers\s+to:?)\s*`)

// speechSuffixRe matches a bare speech label ("2AC", "1nr") used as a
// trailing qualifier on a block name.
var speechSuffixRe = regexp.MustCompile(`^[12]\s?[acnr]{1,2}$`)

// junkSuffixes are trailing dash-delimited qualifiers that are not
// part of an argument name.
var junkSuffixes = map[string]bool{
	"extra":     true,
	"topshelf":  true,
	"top shelf": true,
}

// Section labels. Speech codes match as a prefix of the heading
// ("2NC Round 3" is still a rebuttal marker); word labels must be the
// whole heading.
var (
	rebuttalCodes     = []string{"2ac", "2nc", "1ar", "1nr", "2ar", "2nr"}
	constructiveCodes = []string{"1ac", "1nc"}

	rebuttalWords = map[string]bool{
		"rebuttal": true, "rebuttals": true,
		"frontline": true, "frontlines": true,
		"blocks": true,
	}
	constructiveWords = map[string]bool{
		"constructive": true, "constructives": true,
		"case": true,
	}
	defenseWords = map[string]bool{
		"defense": true, "extensions": true, "extension": true,
	}
)

// ClassifyHeading decides what a heading means. A block-name prefix
// always wins over a section label: committing to the section
// transition would lose the block.
func ClassifyHeading(text string) Heading {
	t := strings.TrimSpace(text)
	if t == "" {
		return Heading{Kind: HeadingNone}
	}
	if loc := blockPrefixRe.FindStringIndex(t); loc != nil {
		name := normalizeBlockName(t[loc[1]:])
		if name == "" {
			return Heading{Kind: HeadingGroupLabel}
		}
		return Heading{Kind: HeadingBlockName, Name: name}
	}
	if kind, ok := classifySection(t); ok {
		return Heading{Kind: kind}
	}
	return Heading{Kind: HeadingNone}
}

func classifySection(text string) (HeadingKind, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ":. ")

	for _, code := range rebuttalCodes {
		if hasLabelPrefix(t, code) {
			return HeadingRebuttal, true
		}
	}
	for _, code := range constructiveCodes {
		if hasLabelPrefix(t, code) {
			return HeadingConstructive, true
		}
	}
	switch {
	case rebuttalWords[t]:
		return HeadingRebuttal, true
	case constructiveWords[t]:
		return HeadingConstructive, true
	case defenseWords[t]:
		return HeadingDefense, true
	}
	return HeadingNone, false
}

// classifyPlainLabel recognizes section labels written as plain body
// paragraphs, for documents that never use heading styles. Only exact
// labels count here; prefix matching on free text would misfire.
func classifyPlainLabel(text string) (HeadingKind, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ":. ")

	for _, code := range rebuttalCodes {
		if t == code {
			return HeadingRebuttal, true
		}
	}
	for _, code := range constructiveCodes {
		if t == code {
			return HeadingConstructive, true
		}
	}
	switch {
	case rebuttalWords[t]:
		return HeadingRebuttal, true
	case constructiveWords[t]:
		return HeadingConstructive, true
	}
	return HeadingNone, false
}

// hasLabelPrefix reports whether t starts with the speech code as a
// whole word.
func hasLabelPrefix(t, code string) bool {
	if !strings.HasPrefix(t, code) {
		return false
	}
	rest := t[len(code):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == ' ' || r == '\t' || r == '-' || r == '–' || r == '—' || r == ':'
}

// normalizeBlockName cleans a candidate argument name: trailing
// dash-delimited speech labels and filing qualifiers are stripped,
// then enclosing punctuation.
func normalizeBlockName(name string) string {
	name = strings.TrimSpace(name)
	for {
		stripped, ok := stripDashSuffix(name)
		if !ok {
			break
		}
		name = stripped
	}
	name = strings.Trim(name, " \t\"'()[]{}.,;:-–—*")
	return strings.TrimSpace(name)
}

// stripDashSuffix removes one trailing "-<speech label>" or
// "-<qualifier>" segment. Ordinary hyphenated names are left alone.
func stripDashSuffix(name string) (string, bool) {
	i := strings.LastIndexAny(name, "-–—")
	if i < 0 {
		return name, false
	}
	_, size := utf8.DecodeRuneInString(name[i:])
	suffix := strings.ToLower(strings.TrimSpace(name[i+size:]))
	if suffix == "" {
		return name, false
	}
	if !speechSuffixRe.MatchString(suffix) && !junkSuffixes[suffix] {
		return name, false
	}
	head := strings.TrimRight(name[:i], "-–— \t")
	return head, head != ""
}
