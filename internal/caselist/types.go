package caselist

import (
	"encoding/json"
	"path"
	"strings"
)

// Side is the debating position a team held in a round.
type Side string

const (
	SideAff     Side = "AFF"
	SideNeg     Side = "NEG"
	SideUnknown Side = ""
)

// ParseSide maps the archive's side field to a canonical side. The
// archive stores "A" for affirmative teams and other letters for
// negative; an empty field stays unknown rather than defaulting to a
// side.
func ParseSide(s string) Side {
	s = strings.TrimSpace(s)
	if s == "" {
		return SideUnknown
	}
	if strings.EqualFold(s, "A") || strings.EqualFold(s, "AFF") {
		return SideAff
	}
	return SideNeg
}

// School is one school entry from the archive listing. The API
// answers either plain name strings or objects, so it unmarshals both.
type School struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

func (s *School) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Name)
	}
	type plain School
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = School(p)
	return nil
}

// Team is one team entry inside a school.
type Team struct {
	Name        string `json:"team"`
	DisplayName string `json:"display_name"`
}

func (t *Team) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Name)
	}
	type plain Team
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Team(p)
	return nil
}

// Round is one disclosed round as the archive reports it.
type Round struct {
	Tournament string     `json:"tournament"`
	Round      flexString `json:"round"`
	Side       string     `json:"side"`
	Opponent   string     `json:"opponent"`
	Judge      string     `json:"judge"`
	Report     string     `json:"report"`
	Opensource string     `json:"opensource"`
	CreatedAt  string     `json:"created_at"`
}

// flexString accepts both JSON strings and numbers; the archive is
// not consistent about round numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	if *f == "null" {
		*f = ""
	}
	return nil
}

// SourceRecord identifies one archived round document. Identity is
// the opensource file path; everything else is attribution metadata.
type SourceRecord struct {
	School     string
	Team       string
	Tournament string
	Round      string
	Side       Side
	Opponent   string
	Judge      string
	Report     string
	Path       string
	CreatedAt  string
}

// FileName returns the bare file name of the archived document.
func (r SourceRecord) FileName() string {
	return path.Base(r.Path)
}

// NormalizeTournament strips the ordering digits and dashes schools
// prefix tournament names with ("3 - Glenbrooks" reads as
// "Glenbrooks").
func NormalizeTournament(s string) string {
	return strings.TrimSpace(strings.TrimLeft(s, "0123456789-– "))
}
