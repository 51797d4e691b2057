package fixtures

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// flexID unmarshals from a JSON number or string so team ids work whichever
// way the provider encodes them.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

// --------------------------------------------------------------------------
// Provider DTOs
// --------------------------------------------------------------------------

// APIEnvelope wraps every provider list response.
type APIEnvelope struct {
	Results  int               `json:"results"`
	Errors   json.RawMessage   `json:"errors"`
	Response []APIFixtureEntry `json:"response"`
}

// APIFixtureEntry is one fixture as returned by the provider.
type APIFixtureEntry struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
			Long  string `json:"long"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"league"`
	Teams struct {
		Home APITeam `json:"home"`
		Away APITeam `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// APITeam is one side of a fixture.
type APITeam struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// MapStatus converts a provider short status code to a FixtureStatus. Codes
// for postponed or abandoned fixtures map to upcoming since no result exists.
func MapStatus(short string) domain.FixtureStatus {
	switch strings.ToUpper(strings.TrimSpace(short)) {
	case "1H", "HT", "2H", "ET", "BT", "P", "SUSP", "INT", "LIVE":
		return domain.FixtureStatusLive
	case "FT", "AET", "PEN", "AWD", "WO":
		return domain.FixtureStatusFinished
	default:
		return domain.FixtureStatusUpcoming
	}
}

// ToDomainFixture converts the DTO into a domain.Fixture. A live or finished
// fixture with missing goal counts is given 0-0.
func (e *APIFixtureEntry) ToDomainFixture() domain.Fixture {
	f := domain.Fixture{
		ID:         e.Fixture.ID,
		HomeTeam:   e.Teams.Home.Name,
		AwayTeam:   e.Teams.Away.Name,
		HomeTeamID: string(e.Teams.Home.ID),
		AwayTeamID: string(e.Teams.Away.ID),
		HomeLogo:   e.Teams.Home.Logo,
		AwayLogo:   e.Teams.Away.Logo,
		League:     e.League.Name,
		Status:     MapStatus(e.Fixture.Status.Short),
	}
	if ts, err := time.Parse(time.RFC3339, e.Fixture.Date); err == nil {
		f.Date = ts.UTC()
	} else if unix, err := strconv.ParseInt(e.Fixture.Date, 10, 64); err == nil {
		f.Date = time.Unix(unix, 0).UTC()
	}

	if f.Status != domain.FixtureStatusUpcoming {
		s := domain.Score{}
		if e.Goals.Home != nil {
			s.Home = *e.Goals.Home
		}
		if e.Goals.Away != nil {
			s.Away = *e.Goals.Away
		}
		f.Score = &s
	}
	return f
}
