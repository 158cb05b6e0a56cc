package caselist

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Scrape modes. Teams and schools come straight from configuration;
// recent and topic walk the whole caselist and filter.
const (
	ModeTeams  = "teams"
	ModeSchool = "school"
	ModeRecent = "recent"
	ModeTopic  = "topic"
)

// TeamRef names one team to scrape.
type TeamRef struct {
	School string `yaml:"school"`
	Team   string `yaml:"team"`
}

func (t TeamRef) String() string { return t.School + "/" + t.Team }

// TargetOptions selects which rounds a scrape covers.
type TargetOptions struct {
	Mode    string
	Teams   []TeamRef
	Schools []string
	Days    int      // recent mode: rounds disclosed in the last N days
	Topics  []string // keyword filter; required in topic mode, optional otherwise
}

// Target is one team with the rounds selected for it.
type Target struct {
	School string
	Team   string
	Rounds []Round
}

// ResolveTargets expands the options into concrete teams and fetches
// their round listings. Teams that fail to list are logged and
// skipped; resolving only fails when the caselist itself cannot be
// walked.
func (c *Client) ResolveTargets(ctx context.Context, opts TargetOptions) ([]Target, error) {
	switch opts.Mode {
	case ModeTeams, "":
		if len(opts.Teams) == 0 {
			return nil, fmt.Errorf("teams mode needs at least one configured team")
		}
		return c.resolveTeams(ctx, opts, opts.Teams)
	case ModeSchool:
		if len(opts.Schools) == 0 {
			return nil, fmt.Errorf("school mode needs at least one school")
		}
		var refs []TeamRef
		for _, school := range opts.Schools {
			teams, err := c.Teams(ctx, school)
			if err != nil {
				return nil, err
			}
			if len(teams) == 0 {
				log.Printf("school %s has no teams", school)
			}
			for _, t := range teams {
				refs = append(refs, TeamRef{School: school, Team: t.Name})
			}
		}
		return c.resolveTeams(ctx, opts, refs)
	case ModeRecent, ModeTopic:
		if opts.Mode == ModeTopic && len(opts.Topics) == 0 {
			return nil, fmt.Errorf("topic mode needs at least one keyword")
		}
		return c.resolveSitewide(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

func (c *Client) resolveTeams(ctx context.Context, opts TargetOptions, refs []TeamRef) ([]Target, error) {
	var targets []Target
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rounds, err := c.Rounds(ctx, ref.School, ref.Team)
		if err != nil {
			log.Printf("skipping %s: %v", ref, err)
			continue
		}
		rounds = DedupRounds(rounds, opts.Topics)
		if len(rounds) == 0 {
			continue
		}
		targets = append(targets, Target{School: ref.School, Team: ref.Team, Rounds: rounds})
	}
	return targets, nil
}

// resolveSitewide walks every school and team on the caselist. Recent
// mode keeps rounds disclosed within the window; topic mode keeps
// rounds whose metadata mentions a keyword.
func (c *Client) resolveSitewide(ctx context.Context, opts TargetOptions) ([]Target, error) {
	schools, err := c.Schools(ctx)
	if err != nil {
		return nil, err
	}
	days := opts.Days
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var targets []Target
	for _, school := range schools {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		teams, err := c.Teams(ctx, school.Name)
		if err != nil {
			log.Printf("skipping school %s: %v", school.Name, err)
			continue
		}
		for _, team := range teams {
			rounds, err := c.Rounds(ctx, school.Name, team.Name)
			if err != nil {
				log.Printf("skipping %s/%s: %v", school.Name, team.Name, err)
				continue
			}
			if opts.Mode == ModeRecent {
				rounds = filterRounds(rounds, func(r Round) bool { return isRecent(r, cutoff) })
			}
			rounds = DedupRounds(rounds, opts.Topics)
			if len(rounds) == 0 {
				continue
			}
			targets = append(targets, Target{School: school.Name, Team: team.Name, Rounds: rounds})
		}
	}
	return targets, nil
}

func filterRounds(rounds []Round, keep func(Round) bool) []Round {
	var out []Round
	for _, r := range rounds {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// DedupRounds drops rounds without an open-source document, applies
// the optional topic filter, and keeps one round per document path.
// Teams upload the same file for several rounds of a tournament; the
// first listing wins, so block attribution follows the archive's
// round order.
func DedupRounds(rounds []Round, topics []string) []Round {
	seen := make(map[string]bool)
	var out []Round
	for _, r := range rounds {
		if r.Opensource == "" || seen[r.Opensource] {
			continue
		}
		if len(topics) > 0 && !MatchesTopic(r, topics) {
			continue
		}
		seen[r.Opensource] = true
		out = append(out, r)
	}
	return out
}

// MatchesTopic reports whether any keyword appears in the round's
// report or document name, case-insensitively. Opponent names stay
// out of the haystack; a school whose name contains a keyword is not
// a topic hit.
func MatchesTopic(r Round, topics []string) bool {
	haystack := strings.ToLower(r.Report + " " + r.Opensource)
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" && strings.Contains(haystack, topic) {
			return true
		}
	}
	return false
}

// isRecent parses the archive's "YYYY-MM-DD HH:MM:SS..." timestamps,
// tolerating an ISO "T" separator. Rounds whose timestamps do not
// parse are dropped; a disclosure exactly at the cutoff still counts.
func isRecent(r Round, cutoff time.Time) bool {
	s := r.CreatedAt
	if len(s) < 19 {
		return false
	}
	t, err := time.Parse("2006-01-02 15:04:05", strings.Replace(s[:19], "T", " ", 1))
	if err != nil {
		return false
	}
	return !t.Before(cutoff)
}

// SourceRecords flattens a target's rounds into source records for
// the extraction pipeline.
func SourceRecords(school, team string, rounds []Round) []SourceRecord {
	recs := make([]SourceRecord, 0, len(rounds))
	for _, r := range rounds {
		recs = append(recs, SourceRecord{
			School:     school,
			Team:       team,
			Tournament: NormalizeTournament(r.Tournament),
			Round:      string(r.Round),
			Side:       ParseSide(r.Side),
			Opponent:   r.Opponent,
			Judge:      r.Judge,
			Report:     r.Report,
			Path:       r.Opensource,
			CreatedAt:  r.CreatedAt,
		})
	}
	return recs
}
