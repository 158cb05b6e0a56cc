// Package compile orchestrates the 7-step scrape pipeline: resolve
// targets, download round documents, extract rebuttal blocks, group
// them by argument, render the side documents, optionally print PDFs,
// and record the run.
package compile

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/extract"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/group"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/pdf"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/render"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

// Options select what a run scrapes and where its output goes.
type Options struct {
	Mode     string
	Teams    []caselist.TeamRef
	Schools  []string
	Days     int
	Topics   []string
	OutDir   string
	Name     string // output base name; defaults to the caselist name
	PDF      bool
	Parallel int
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full run.
type Result struct {
	Steps           []StepResult
	RunID           int64
	Files           int
	FailedDownloads int
	Summary         group.Summary
	AffPath         string
	NegPath         string
	PacketPath      string
	ReportMD        string
}

// Err returns the error of the step that stopped the run, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Compiler wires the archive client and the local store into runs.
type Compiler struct {
	client *caselist.Client
	store  *store.Store
}

// New creates a new Compiler.
func New(client *caselist.Client, st *store.Store) *Compiler {
	return &Compiler{client: client, store: st}
}

// runState carries intermediate products between pipeline steps.
type runState struct {
	opts       Options
	targets    string // printable target description
	teams      int
	records    []caselist.SourceRecord
	payloads   [][]byte
	fetched    int
	failed     int
	blocks     []extract.Block
	summary    group.Summary
	affGroups  []group.ArgumentGroup
	negGroups  []group.ArgumentGroup
	affPath    string
	negPath    string
	packetPath string
	report     string
	runID      int64
}

// Run executes the full pipeline.
func (c *Compiler) Run(ctx context.Context, opts Options) *Result {
	st := &runState{opts: c.withDefaults(opts)}
	r := &Result{}

	step := c.runResolve(ctx, st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = c.runDownload(ctx, st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = c.runExtract(st)
	r.Steps = append(r.Steps, step)

	step = c.runGroup(st)
	r.Steps = append(r.Steps, step)

	step = c.runRender(st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	step = c.runPDF(ctx, st)
	r.Steps = append(r.Steps, step)

	step = c.runRecord(st)
	r.Steps = append(r.Steps, step)

	r.RunID = st.runID
	r.Files = st.fetched
	r.FailedDownloads = st.failed
	r.Summary = st.summary
	r.AffPath = st.affPath
	r.NegPath = st.negPath
	r.PacketPath = st.packetPath
	r.ReportMD = st.report
	return r
}

// DryRun resolves targets and reports what a run would do without
// downloading anything.
func (c *Compiler) DryRun(ctx context.Context, opts Options) *Result {
	st := &runState{opts: c.withDefaults(opts)}
	r := &Result{}

	step := c.runResolve(ctx, st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	cached := 0
	for _, rec := range st.records {
		if name, err := c.store.FileCacheName(rec.Path); err == nil && name != "" {
			cached++
		}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Download",
		Summary: fmt.Sprintf("[dry-run] Would fetch %d documents (%d already cached)", len(st.records), cached),
	})
	r.Steps = append(r.Steps, StepResult{
		Name: "Render",
		Summary: fmt.Sprintf("[dry-run] Would write %s-aff.html and %s-neg.html to %s",
			st.opts.Name, st.opts.Name, st.opts.OutDir),
	})
	return r
}

func (c *Compiler) withDefaults(opts Options) Options {
	if opts.Mode == "" {
		opts.Mode = caselist.ModeTeams
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	if opts.OutDir == "" {
		opts.OutDir = "out"
	}
	if opts.Name == "" {
		opts.Name = c.client.Caselist()
	}
	return opts
}

func (c *Compiler) runResolve(ctx context.Context, st *runState) StepResult {
	log.Println("Step 1/7: Resolving targets...")
	targets, err := c.client.ResolveTargets(ctx, caselist.TargetOptions{
		Mode:    st.opts.Mode,
		Teams:   st.opts.Teams,
		Schools: st.opts.Schools,
		Days:    st.opts.Days,
		Topics:  st.opts.Topics,
	})
	if err != nil {
		return StepResult{Name: "Resolve", Err: err}
	}
	for _, t := range targets {
		st.records = append(st.records, caselist.SourceRecords(t.School, t.Team, t.Rounds)...)
	}
	st.teams = len(targets)
	st.targets = targetLabel(st.opts)
	if len(st.records) == 0 {
		return StepResult{Name: "Resolve", Err: fmt.Errorf("no open-source documents matched the requested targets")}
	}
	return StepResult{
		Name:    "Resolve",
		Summary: fmt.Sprintf("%d teams, %d documents", st.teams, len(st.records)),
	}
}

func (c *Compiler) runDownload(ctx context.Context, st *runState) StepResult {
	log.Println("Step 2/7: Downloading round documents...")
	st.payloads = make([][]byte, len(st.records))
	for i, rec := range st.records {
		data, err := c.client.Download(ctx, rec.Path)
		if err != nil {
			if ctx.Err() != nil {
				return StepResult{Name: "Download", Err: ctx.Err()}
			}
			log.Printf("Download failed for %s: %v", rec.FileName(), err)
			st.failed++
			continue
		}
		st.payloads[i] = data
		st.fetched++
	}
	if st.fetched == 0 {
		return StepResult{Name: "Download", Err: fmt.Errorf("all %d downloads failed", st.failed)}
	}
	return StepResult{
		Name:    "Download",
		Summary: fmt.Sprintf("Fetched %d documents, %d failed", st.fetched, st.failed),
	}
}

func (c *Compiler) runExtract(st *runState) StepResult {
	log.Println("Step 3/7: Extracting rebuttal blocks...")
	lists := make([][]extract.Block, len(st.records))
	unreadable := make([]bool, len(st.records))

	var g errgroup.Group
	g.SetLimit(st.opts.Parallel)
	for i := range st.records {
		if st.payloads[i] == nil {
			continue
		}
		g.Go(func() error {
			blocks, err := extract.ExtractBytes(st.payloads[i], st.records[i])
			if err != nil {
				log.Printf("Skipping %s: %v", st.records[i].FileName(), err)
				unreadable[i] = true
				return nil
			}
			lists[i] = blocks
			return nil
		})
	}
	g.Wait()
	st.payloads = nil

	bad := 0
	for i := range lists {
		if unreadable[i] {
			bad++
			continue
		}
		st.blocks = append(st.blocks, lists[i]...)
	}
	st.summary = group.Summarize(st.blocks)

	summary := fmt.Sprintf("%d blocks from %d documents", len(st.blocks), st.fetched-bad)
	if bad > 0 {
		summary += fmt.Sprintf(" (%d unreadable)", bad)
	}
	return StepResult{Name: "Extract", Summary: summary}
}

func (c *Compiler) runGroup(st *runState) StepResult {
	log.Println("Step 4/7: Grouping blocks by argument...")
	aff, neg, unknown := group.Partition(st.blocks)
	st.affGroups = group.Group(aff)
	st.negGroups = group.Group(neg)
	return StepResult{
		Name: "Group",
		Summary: fmt.Sprintf("%d aff and %d neg arguments, %d blocks lacked side data",
			len(st.affGroups), len(st.negGroups), unknown),
	}
}

func (c *Compiler) runRender(st *runState) StepResult {
	log.Println("Step 5/7: Rendering side documents...")
	if err := os.MkdirAll(st.opts.OutDir, 0o755); err != nil {
		return StepResult{Name: "Render", Err: fmt.Errorf("creating output directory: %w", err)}
	}

	meta := render.Meta{
		Caselist:    c.client.Caselist(),
		Mode:        st.opts.Mode,
		Targets:     st.targets,
		Topic:       strings.Join(st.opts.Topics, ", "),
		Files:       st.fetched,
		Summary:     st.summary,
		GeneratedAt: time.Now(),
	}
	st.affPath = filepath.Join(st.opts.OutDir, st.opts.Name+"-aff.html")
	st.negPath = filepath.Join(st.opts.OutDir, st.opts.Name+"-neg.html")

	if err := os.WriteFile(st.affPath, render.Document(caselist.SideAff, st.affGroups, meta), 0o644); err != nil {
		return StepResult{Name: "Render", Err: fmt.Errorf("writing %s: %w", st.affPath, err)}
	}
	if err := os.WriteFile(st.negPath, render.Document(caselist.SideNeg, st.negGroups, meta), 0o644); err != nil {
		return StepResult{Name: "Render", Err: fmt.Errorf("writing %s: %w", st.negPath, err)}
	}
	return StepResult{
		Name:    "Render",
		Summary: fmt.Sprintf("Wrote %s and %s", st.affPath, st.negPath),
	}
}

func (c *Compiler) runPDF(ctx context.Context, st *runState) StepResult {
	if !st.opts.PDF {
		return StepResult{Name: "PDF", Summary: "Skipped (pass --pdf to enable)"}
	}
	log.Println("Step 6/7: Printing PDFs...")
	if !pdf.Available() {
		return StepResult{Name: "PDF", Summary: "Skipped: no Chrome or Chromium on PATH"}
	}

	affPDF := replaceExt(st.affPath, ".pdf")
	negPDF := replaceExt(st.negPath, ".pdf")
	if err := pdf.Convert(ctx, st.affPath, affPDF, st.opts.Name+" AFF"); err != nil {
		return StepResult{Name: "PDF", Summary: fmt.Sprintf("Conversion failed: %v", err)}
	}
	if err := pdf.Convert(ctx, st.negPath, negPDF, st.opts.Name+" NEG"); err != nil {
		return StepResult{Name: "PDF", Summary: fmt.Sprintf("Conversion failed: %v", err)}
	}

	packet := filepath.Join(st.opts.OutDir, st.opts.Name+"-packet.pdf")
	if err := pdf.Merge([]string{affPDF, negPDF}, packet); err != nil {
		return StepResult{Name: "PDF", Summary: fmt.Sprintf("Merge failed: %v", err)}
	}
	st.packetPath = packet
	return StepResult{Name: "PDF", Summary: fmt.Sprintf("Wrote %s", packet)}
}

func (c *Compiler) runRecord(st *runState) StepResult {
	log.Println("Step 7/7: Recording the run...")
	st.report = buildReport(st, c.client.Caselist())

	run := store.Run{
		Caselist:    c.client.Caselist(),
		Mode:        st.opts.Mode,
		Targets:     st.targets,
		Topic:       strings.Join(st.opts.Topics, ", "),
		Files:       st.fetched,
		Blocks:      st.summary.Blocks,
		Arguments:   st.summary.Arguments,
		Tournaments: st.summary.Tournaments,
		UnknownSide: st.summary.UnknownSide,
		AffPath:     &st.affPath,
		NegPath:     &st.negPath,
		ReportMD:    st.report,
	}
	if st.packetPath != "" {
		run.PacketPath = &st.packetPath
	}

	id, err := c.store.InsertRun(run)
	if err != nil {
		return StepResult{Name: "Record", Err: fmt.Errorf("recording run: %w", err)}
	}
	st.runID = id
	return StepResult{Name: "Record", Summary: fmt.Sprintf("Run #%d saved", id)}
}

// targetLabel renders the run's targets for reports and the run table.
func targetLabel(opts Options) string {
	switch opts.Mode {
	case caselist.ModeSchool:
		return strings.Join(opts.Schools, ", ")
	case caselist.ModeRecent:
		days := opts.Days
		if days <= 0 {
			days = 7
		}
		return fmt.Sprintf("last %d days", days)
	case caselist.ModeTopic:
		return strings.Join(opts.Topics, ", ")
	default:
		refs := make([]string, 0, len(opts.Teams))
		for _, t := range opts.Teams {
			refs = append(refs, t.String())
		}
		return strings.Join(refs, ", ")
	}
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
