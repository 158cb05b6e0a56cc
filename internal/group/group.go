// Package group canonicalizes extracted blocks: same-argument blocks
// from different documents are merged under one name, duplicates
// dropped, and the result ordered by how often an argument came up.
package group

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/extract"
)

// fingerprintRunes is how much concatenated line text feeds the dedup
// fingerprint. Blocks that only differ beyond this window collapse;
// that limitation is accepted.
const fingerprintRunes = 120

// ArgumentGroup is one canonical argument with its deduplicated
// blocks.
type ArgumentGroup struct {
	Name   string
	Blocks []extract.Block
}

// Group canonicalizes blocks by argument name. Buckets are processed
// longest name first so a short generic name ("Econ") cannot swallow
// a longer specific one ("Econ Decline DA") before the specific one
// is registered. A bucket merges into the first canonical entry whose
// normalized name contains, or is contained in, its own; the merged
// entry takes whichever name brought more blocks, ties keeping the
// registered name. Groups come back sorted by descending block count,
// stable on ties.
func Group(blocks []extract.Block) []ArgumentGroup {
	buckets := make(map[string][]extract.Block)
	for _, b := range blocks {
		buckets[b.Argument] = append(buckets[b.Argument], b)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	var groups []ArgumentGroup
	for _, key := range keys {
		bucket := buckets[key]
		norm := normalizeName(key)
		merged := false
		for i := range groups {
			existing := normalizeName(groups[i].Name)
			if !strings.Contains(existing, norm) && !strings.Contains(norm, existing) {
				continue
			}
			if len(bucket) > len(groups[i].Blocks) {
				groups[i].Name = key
			}
			groups[i].Blocks = append(groups[i].Blocks, bucket...)
			merged = true
			break
		}
		if !merged {
			groups = append(groups, ArgumentGroup{Name: key, Blocks: bucket})
		}
	}

	for i := range groups {
		groups[i].Blocks = dedup(groups[i].Blocks)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Blocks) > len(groups[j].Blocks)
	})
	return groups
}

// dedup keeps the first occurrence per content fingerprint, preserving
// order.
func dedup(blocks []extract.Block) []extract.Block {
	seen := make(map[string]bool, len(blocks))
	out := blocks[:0:0]
	for _, b := range blocks {
		fp := fingerprint(b)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, b)
	}
	return out
}

// fingerprint hashes source path, raw argument name, and a fixed
// prefix of the block's line text.
func fingerprint(b extract.Block) string {
	var sb strings.Builder
	for i, l := range b.Lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.Text())
	}
	text := runePrefix(sb.String(), fingerprintRunes)
	sum := md5.Sum([]byte(b.Source.Path + "\x00" + b.Argument + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func runePrefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// normalizeName lowercases and collapses whitespace for substring
// comparison.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
