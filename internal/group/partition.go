package group

import (
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/extract"
)

// Partition splits blocks by the side their source team debated.
// Blocks with no side data go into both partitions rather than being
// dropped; the count of such blocks is returned for the run warning.
func Partition(blocks []extract.Block) (aff, neg []extract.Block, unknown int) {
	for _, b := range blocks {
		switch b.Source.Side {
		case caselist.SideAff:
			aff = append(aff, b)
		case caselist.SideNeg:
			neg = append(neg, b)
		default:
			unknown++
			aff = append(aff, b)
			neg = append(neg, b)
		}
	}
	return aff, neg, unknown
}

// Summary aggregates counts for the cover page and run report.
type Summary struct {
	Blocks      int
	Arguments   int
	Tournaments int
	UnknownSide int
}

// Summarize counts blocks, canonical arguments, distinct tournaments,
// and blocks without side data.
func Summarize(blocks []extract.Block) Summary {
	tournaments := make(map[string]bool)
	unknown := 0
	for _, b := range blocks {
		if t := caselist.NormalizeTournament(b.Source.Tournament); t != "" {
			tournaments[t] = true
		}
		if b.Source.Side == caselist.SideUnknown {
			unknown++
		}
	}
	return Summary{
		Blocks:      len(blocks),
		Arguments:   len(Group(blocks)),
		Tournaments: len(tournaments),
		UnknownSide: unknown,
	}
}
