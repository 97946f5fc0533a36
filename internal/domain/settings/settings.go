// Package settings models the global motivation configuration and its
// per-day frozen copies. All computation takes a Settings value explicitly;
// nothing reads a process-wide singleton.
package settings

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode selects how the fund is distributed
type Mode string

const (
	ModeTeam     Mode = "team"
	ModePersonal Mode = "personal"
	ModeAdaptive Mode = "adaptive"
)

var (
	DefaultFundPercent            = decimal.RequireFromString("0.15")
	DefaultIndividualShare        = decimal.RequireFromString("0.6")
	DefaultTeamShare              = decimal.RequireFromString("0.4")
	DefaultWeeklyPercent          = decimal.RequireFromString("0.008")
	DefaultSeasonPercent          = decimal.RequireFromString("0.005")
	DefaultDispatcherPercentTotal = decimal.RequireFromString("0.002")

	// MaxWithholdPercent caps weekly, season and dispatcher percents
	MaxWithholdPercent = decimal.RequireFromString("0.05")
)

// Settings is the subset of global configuration the motivation math depends on
type Settings struct {
	Version                int                        `json:"version"`
	Mode                   Mode                       `json:"mode"`
	FundPercent            decimal.Decimal            `json:"fund_percent"`
	IndividualShare        decimal.Decimal            `json:"individual_share"`
	TeamShare              decimal.Decimal            `json:"team_share"`
	CategoryCoefficients   map[string]decimal.Decimal `json:"category_coefficients"`
	ZoneCoefficients       map[string]decimal.Decimal `json:"zone_coefficients"`
	WeeklyPercent          decimal.Decimal            `json:"weekly_percent"`
	SeasonPercent          decimal.Decimal            `json:"season_percent"`
	DispatcherPercentTotal decimal.Decimal            `json:"dispatcher_percent_total"`
}

// document is the wire shape; nil fields fall back to defaults
type document struct {
	Version                int                        `json:"version"`
	Mode                   Mode                       `json:"mode"`
	FundPercent            *decimal.Decimal           `json:"fund_percent"`
	IndividualShare        *decimal.Decimal           `json:"individual_share"`
	TeamShare              *decimal.Decimal           `json:"team_share"`
	CategoryCoefficients   map[string]decimal.Decimal `json:"category_coefficients"`
	ZoneCoefficients       map[string]decimal.Decimal `json:"zone_coefficients"`
	WeeklyPercent          *decimal.Decimal           `json:"weekly_percent"`
	SeasonPercent          *decimal.Decimal           `json:"season_percent"`
	DispatcherPercentTotal *decimal.Decimal           `json:"dispatcher_percent_total"`
}

// Defaults returns the built-in configuration
func Defaults() Settings {
	s := Settings{
		Mode:                   ModeAdaptive,
		FundPercent:            DefaultFundPercent,
		IndividualShare:        DefaultIndividualShare,
		TeamShare:              DefaultTeamShare,
		WeeklyPercent:          DefaultWeeklyPercent,
		SeasonPercent:          DefaultSeasonPercent,
		DispatcherPercentTotal: DefaultDispatcherPercentTotal,
	}
	return s.Normalize()
}

// Seed builds settings from plain configuration values
func Seed(mode string, fund, individual, team, weekly, season, dispatcher float64) Settings {
	s := Settings{
		Mode:                   Mode(mode),
		FundPercent:            decimal.NewFromFloat(fund),
		IndividualShare:        decimal.NewFromFloat(individual),
		TeamShare:              decimal.NewFromFloat(team),
		WeeklyPercent:          decimal.NewFromFloat(weekly),
		SeasonPercent:          decimal.NewFromFloat(season),
		DispatcherPercentTotal: decimal.NewFromFloat(dispatcher),
	}
	return s.Normalize()
}

// Decode parses a settings document, filling absent fields with defaults
// and normalizing the result
func Decode(data []byte) (Settings, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}

	s := Settings{
		Version:                doc.Version,
		Mode:                   doc.Mode,
		FundPercent:            orDefault(doc.FundPercent, DefaultFundPercent),
		IndividualShare:        orDefault(doc.IndividualShare, DefaultIndividualShare),
		TeamShare:              orDefault(doc.TeamShare, DefaultTeamShare),
		CategoryCoefficients:   doc.CategoryCoefficients,
		ZoneCoefficients:       doc.ZoneCoefficients,
		WeeklyPercent:          orDefault(doc.WeeklyPercent, DefaultWeeklyPercent),
		SeasonPercent:          orDefault(doc.SeasonPercent, DefaultSeasonPercent),
		DispatcherPercentTotal: orDefault(doc.DispatcherPercentTotal, DefaultDispatcherPercentTotal),
	}
	return s.Normalize(), nil
}

// Encode serializes the settings for storage
func (s Settings) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return data, nil
}

// Normalize clamps every value into its allowed range and returns the copy
func (s Settings) Normalize() Settings {
	switch s.Mode {
	case ModeTeam, ModePersonal, ModeAdaptive:
	default:
		s.Mode = ModeAdaptive
	}

	s.FundPercent = clamp(s.FundPercent, decimal.Zero, decimal.NewFromInt(1))
	s.WeeklyPercent = clamp(s.WeeklyPercent, decimal.Zero, MaxWithholdPercent)
	s.SeasonPercent = clamp(s.SeasonPercent, decimal.Zero, MaxWithholdPercent)
	s.DispatcherPercentTotal = clamp(s.DispatcherPercentTotal, decimal.Zero, MaxWithholdPercent)

	ind := decimal.Max(s.IndividualShare, decimal.Zero)
	team := decimal.Max(s.TeamShare, decimal.Zero)
	sum := ind.Add(team)
	if sum.IsZero() {
		half := decimal.RequireFromString("0.5")
		s.IndividualShare, s.TeamShare = half, half
	} else {
		s.IndividualShare = ind.Div(sum)
		s.TeamShare = decimal.NewFromInt(1).Sub(s.IndividualShare)
	}

	s.CategoryCoefficients = nonNegative(s.CategoryCoefficients)
	s.ZoneCoefficients = nonNegative(s.ZoneCoefficients)
	return s
}

// PerDispatcherPercent is the bonus percent each of the two paid dispatchers gets
func (s Settings) PerDispatcherPercent() decimal.Decimal {
	return s.DispatcherPercentTotal.Div(decimal.NewFromInt(int64(MaxPaidDispatchers)))
}

// CategoryCoefficient returns k for a boat category, 1 when unset
func (s Settings) CategoryCoefficient(category string) decimal.Decimal {
	return coefficient(s.CategoryCoefficients, category)
}

// ZoneCoefficient returns k for a sale zone, 1 when unset
func (s Settings) ZoneCoefficient(zone string) decimal.Decimal {
	return coefficient(s.ZoneCoefficients, zone)
}

// Equal compares the values that influence computation, ignoring Version
func (s Settings) Equal(o Settings) bool {
	if s.Mode != o.Mode ||
		!s.FundPercent.Equal(o.FundPercent) ||
		!s.IndividualShare.Equal(o.IndividualShare) ||
		!s.TeamShare.Equal(o.TeamShare) ||
		!s.WeeklyPercent.Equal(o.WeeklyPercent) ||
		!s.SeasonPercent.Equal(o.SeasonPercent) ||
		!s.DispatcherPercentTotal.Equal(o.DispatcherPercentTotal) {
		return false
	}
	return equalCoefficients(s.CategoryCoefficients, o.CategoryCoefficients) &&
		equalCoefficients(s.ZoneCoefficients, o.ZoneCoefficients)
}

// MaxPaidDispatchers is how many active dispatchers share the bonus
const MaxPaidDispatchers = 2

func orDefault(v *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func nonNegative(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = decimal.Max(v, decimal.Zero)
	}
	return out
}

func coefficient(m map[string]decimal.Decimal, key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.NewFromInt(1)
}

func equalCoefficients(a, b map[string]decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}
