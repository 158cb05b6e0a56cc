// Package mcpserver exposes the scraper over the Model Context
// Protocol so agent tooling can browse round listings and pull
// rebuttal blocks without shelling out to the CLI.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/extract"
	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/store"
)

// Server wraps the MCP SDK server around the archive client and the
// local run database.
type Server struct {
	MCPServer *sdkmcp.Server

	client *caselist.Client
	store  *store.Store
}

// New creates the MCP server with the caselist tools registered. Run
// it with s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{}).
func New(client *caselist.Client, st *store.Store, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "blockscraper", Version: version},
			nil,
		),
		client: client,
		store:  st,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_rounds",
		Description: "List a team's disclosed rounds on the configured caselist, including open-source document paths where available.",
	}, s.handleListRounds)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "extract_blocks",
		Description: "Extract rebuttal answer blocks from round documents. Pass a local .docx file, a document path from list_rounds, or a school and team to cover every open-source round they disclosed.",
	}, s.handleExtractBlocks)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "last_run",
		Description: "Summarize the most recent compile run: targets, block counts, and output file paths.",
	}, s.handleLastRun)
}

// --- Tool inputs and outputs ---

type listRoundsInput struct {
	School string `json:"school" jsonschema:"school name as it appears on the caselist"`
	Team   string `json:"team" jsonschema:"team code within the school"`
}

type roundInfo struct {
	Tournament string `json:"tournament"`
	Round      string `json:"round,omitempty"`
	Side       string `json:"side,omitempty"`
	Opponent   string `json:"opponent,omitempty"`
	Judge      string `json:"judge,omitempty"`
	Report     string `json:"report,omitempty"`
	Opensource string `json:"opensource,omitempty"`
}

type listRoundsOutput struct {
	Caselist string      `json:"caselist"`
	School   string      `json:"school"`
	Team     string      `json:"team"`
	Rounds   []roundInfo `json:"rounds"`
}

type extractBlocksInput struct {
	Path   string `json:"path,omitempty" jsonschema:"local .docx file, or the archive path of one open-source document as returned by list_rounds"`
	School string `json:"school,omitempty" jsonschema:"school name, used with team when no path is given"`
	Team   string `json:"team,omitempty" jsonschema:"team code, used with school when no path is given"`
}

type blockInfo struct {
	Argument   string   `json:"argument"`
	Side       string   `json:"side,omitempty"`
	School     string   `json:"school,omitempty"`
	Team       string   `json:"team,omitempty"`
	Tournament string   `json:"tournament,omitempty"`
	Round      string   `json:"round,omitempty"`
	File       string   `json:"file"`
	Lines      []string `json:"lines"`
}

type extractBlocksOutput struct {
	Files      int         `json:"files"`
	Unreadable int         `json:"unreadable"`
	Blocks     []blockInfo `json:"blocks"`
}

type lastRunOutput struct {
	ID          int64  `json:"id"`
	Caselist    string `json:"caselist"`
	Mode        string `json:"mode"`
	Targets     string `json:"targets"`
	Topic       string `json:"topic,omitempty"`
	Files       int    `json:"files"`
	Blocks      int    `json:"blocks"`
	Arguments   int    `json:"arguments"`
	Tournaments int    `json:"tournaments"`
	AffPath     string `json:"aff_path,omitempty"`
	NegPath     string `json:"neg_path,omitempty"`
	PacketPath  string `json:"packet_path,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
	Report      string `json:"report"`
}

// --- Tool handlers ---

func (s *Server) handleListRounds(ctx context.Context, _ *sdkmcp.CallToolRequest, input listRoundsInput) (*sdkmcp.CallToolResult, listRoundsOutput, error) {
	if input.School == "" || input.Team == "" {
		return nil, listRoundsOutput{}, fmt.Errorf("school and team are required")
	}

	rounds, err := s.client.Rounds(ctx, input.School, input.Team)
	if err != nil {
		return nil, listRoundsOutput{}, fmt.Errorf("list rounds for %s/%s: %w", input.School, input.Team, err)
	}

	out := listRoundsOutput{
		Caselist: s.client.Caselist(),
		School:   input.School,
		Team:     input.Team,
		Rounds:   make([]roundInfo, 0, len(rounds)),
	}
	for _, r := range rounds {
		out.Rounds = append(out.Rounds, roundInfo{
			Tournament: caselist.NormalizeTournament(r.Tournament),
			Round:      string(r.Round),
			Side:       string(caselist.ParseSide(r.Side)),
			Opponent:   r.Opponent,
			Judge:      r.Judge,
			Report:     r.Report,
			Opensource: r.Opensource,
		})
	}
	return nil, out, nil
}

func (s *Server) handleExtractBlocks(ctx context.Context, _ *sdkmcp.CallToolRequest, input extractBlocksInput) (*sdkmcp.CallToolResult, extractBlocksOutput, error) {
	records, err := s.resolveRecords(ctx, input)
	if err != nil {
		return nil, extractBlocksOutput{}, err
	}
	if len(records) == 0 {
		return nil, extractBlocksOutput{}, fmt.Errorf("no open-source documents found for %s/%s", input.School, input.Team)
	}

	out := extractBlocksOutput{Files: len(records)}
	for _, rec := range records {
		data, err := s.fetchDocument(ctx, rec.Path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, extractBlocksOutput{}, ctx.Err()
			}
			log.Printf("mcp: fetch %s: %v", rec.FileName(), err)
			out.Unreadable++
			continue
		}
		blocks, err := extract.ExtractBytes(data, rec)
		if err != nil {
			log.Printf("mcp: parse %s: %v", rec.FileName(), err)
			out.Unreadable++
			continue
		}
		for _, b := range blocks {
			out.Blocks = append(out.Blocks, blockInfoFrom(b))
		}
	}
	return nil, out, nil
}

func (s *Server) handleLastRun(_ context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, lastRunOutput, error) {
	run, err := s.store.LastRun()
	if err != nil {
		return nil, lastRunOutput{}, fmt.Errorf("load last run: %w", err)
	}
	if run == nil {
		return nil, lastRunOutput{}, fmt.Errorf("no runs recorded yet; run a scrape first")
	}

	out := lastRunOutput{
		ID:          run.ID,
		Caselist:    run.Caselist,
		Mode:        run.Mode,
		Targets:     run.Targets,
		Topic:       run.Topic,
		Files:       run.Files,
		Blocks:      run.Blocks,
		Arguments:   run.Arguments,
		Tournaments: run.Tournaments,
		Report:      run.ReportMD,
	}
	if run.AffPath != nil {
		out.AffPath = *run.AffPath
	}
	if run.NegPath != nil {
		out.NegPath = *run.NegPath
	}
	if run.PacketPath != nil {
		out.PacketPath = *run.PacketPath
	}
	if run.GeneratedAt != nil {
		out.GeneratedAt = *run.GeneratedAt
	}
	return nil, out, nil
}

// fetchDocument reads path straight off the disk when it names a
// local file; anything else is fetched from the archive through the
// client and its blob cache.
func (s *Server) fetchDocument(ctx context.Context, path string) ([]byte, error) {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return os.ReadFile(path)
	}
	return s.client.Download(ctx, path)
}

// resolveRecords turns the tool input into the documents to fetch.
// A bare path stands on its own; school/team expands to every
// open-source round the team disclosed.
func (s *Server) resolveRecords(ctx context.Context, input extractBlocksInput) ([]caselist.SourceRecord, error) {
	if input.Path != "" {
		return []caselist.SourceRecord{{Path: input.Path}}, nil
	}
	if input.School == "" || input.Team == "" {
		return nil, fmt.Errorf("pass a document path, or both school and team")
	}

	rounds, err := s.client.Rounds(ctx, input.School, input.Team)
	if err != nil {
		return nil, fmt.Errorf("list rounds for %s/%s: %w", input.School, input.Team, err)
	}
	rounds = caselist.DedupRounds(rounds, nil)
	return caselist.SourceRecords(input.School, input.Team, rounds), nil
}

func blockInfoFrom(b extract.Block) blockInfo {
	info := blockInfo{
		Argument:   b.Argument,
		Side:       string(b.Source.Side),
		School:     b.Source.School,
		Team:       b.Source.Team,
		Tournament: caselist.NormalizeTournament(b.Source.Tournament),
		Round:      b.Source.Round,
		File:       b.Source.FileName(),
		Lines:      make([]string, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		info.Lines = append(info.Lines, l.Text())
	}
	return info
}
