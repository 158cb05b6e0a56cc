package compile

import (
	"fmt"
	"strings"
	"time"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/group"
)

const maxReportArguments = 10

// buildReport renders the markdown summary stored with each run and
// shown by the status command and the web UI.
func buildReport(st *runState, caselistName string) string {
	var b strings.Builder

	b.WriteString("# Scrape Report\n\n")
	fmt.Fprintf(&b, "Generated %s for caselist `%s`.\n\n", time.Now().Format("2006-01-02 15:04"), caselistName)

	b.WriteString("## Run\n\n")
	fmt.Fprintf(&b, "- Mode: %s\n", st.opts.Mode)
	if st.targets != "" {
		fmt.Fprintf(&b, "- Targets: %s\n", st.targets)
	}
	if len(st.opts.Topics) > 0 {
		fmt.Fprintf(&b, "- Topic filter: %s\n", strings.Join(st.opts.Topics, ", "))
	}
	fmt.Fprintf(&b, "- Documents: %d fetched, %d failed\n", st.fetched, st.failed)

	b.WriteString("\n## Results\n\n")
	fmt.Fprintf(&b, "- %d blocks across %d arguments\n", st.summary.Blocks, st.summary.Arguments)
	fmt.Fprintf(&b, "- %d tournaments\n", st.summary.Tournaments)
	if st.summary.UnknownSide > 0 {
		fmt.Fprintf(&b, "- %d blocks lacked side data and were included on both sides\n", st.summary.UnknownSide)
	}

	writeArgumentList(&b, "Aff arguments", st.affGroups)
	writeArgumentList(&b, "Neg arguments", st.negGroups)

	b.WriteString("\n## Files\n\n")
	fmt.Fprintf(&b, "- %s\n", st.affPath)
	fmt.Fprintf(&b, "- %s\n", st.negPath)
	if st.packetPath != "" {
		fmt.Fprintf(&b, "- %s\n", st.packetPath)
	}

	return b.String()
}

func writeArgumentList(b *strings.Builder, title string, groups []group.ArgumentGroup) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for i, g := range groups {
		if i >= maxReportArguments {
			fmt.Fprintf(b, "- and %d more\n", len(groups)-maxReportArguments)
			break
		}
		fmt.Fprintf(b, "- %s (%d)\n", g.Name, len(g.Blocks))
	}
}
