// Package payout computes the motivation fund of a business day, the
// withholding taken from it and each participant's points and payout.
package payout

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tourdesk-shift-settlement/internal/domain/motivation"
	"github.com/tourdesk-shift-settlement/internal/domain/settings"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
	"github.com/tourdesk-shift-settlement/internal/settlement/aggregate"
)

var thousand = decimal.NewFromInt(1000)

// Input is everything a computation depends on. States holds every known
// participant state, including participants who did not work that day.
type Input struct {
	BusinessDay  time.Time
	Participants []aggregate.ParticipantRevenue
	Settings     settings.Settings
	States       map[string]motivation.State
}

type ParticipantResult struct {
	ParticipantID    string           `json:"participant_id"`
	Role             shared.Role      `json:"role"`
	Revenue          int64            `json:"revenue"`
	Level            motivation.Level `json:"level"`
	StreakDays       int              `json:"streak_days"`
	PointsBase       decimal.Decimal  `json:"points_base"`
	StreakMultiplier decimal.Decimal  `json:"streak_multiplier"`
	PointsTotal      decimal.Decimal  `json:"points_total"`
	Payout           int64            `json:"payout"`
}

type DispatcherAmount struct {
	ParticipantID string `json:"participant_id"`
	Revenue       int64  `json:"revenue"`
	Amount        int64  `json:"amount"`
}

type Dispatchers struct {
	ActiveCount          int                `json:"active_count"`
	PerDispatcherAmounts []DispatcherAmount `json:"per_dispatcher_amounts"`
}

// Result is the full breakdown of one business day
type Result struct {
	BusinessDay            time.Time           `json:"business_day"`
	Mode                   settings.Mode       `json:"mode"`
	SettingsVersion        int                 `json:"settings_version"`
	PointsEnabled          bool                `json:"points_enabled"`
	RevenueTotal           int64               `json:"revenue_total"`
	FundTotal              int64               `json:"fund_total"`
	WeeklyAmount           int64               `json:"weekly_amount"`
	SeasonAmount           int64               `json:"season_amount"`
	DispatcherAmountTotal  int64               `json:"dispatcher_amount_total"`
	FundTotalAfterWithhold int64               `json:"fund_total_after_withhold"`
	IndividualFund         int64               `json:"individual_fund"`
	TeamFund               int64               `json:"team_fund"`
	Participants           []ParticipantResult `json:"participants"`
	Dispatchers            Dispatchers         `json:"dispatchers"`
	NextStates             []motivation.State  `json:"-"`
}

// PayoutTotal sums all participant payouts
func (r *Result) PayoutTotal() int64 {
	var total int64
	for _, p := range r.Participants {
		total += p.Payout
	}
	return total
}

// Compute runs the whole formula for one day. It is deterministic and does
// not touch storage; the advanced states are returned in NextStates.
func Compute(in Input) *Result {
	cfg := in.Settings
	res := &Result{
		BusinessDay:     in.BusinessDay,
		Mode:            cfg.Mode,
		SettingsVersion: cfg.Version,
		PointsEnabled:   cfg.Mode == settings.ModeAdaptive,
		Participants:    []ParticipantResult{},
	}

	for _, p := range in.Participants {
		res.RevenueTotal += p.Revenue
	}
	if res.RevenueTotal > 0 {
		res.FundTotal = decimal.NewFromInt(res.RevenueTotal).Mul(cfg.FundPercent).Round(0).IntPart()
	}
	fund := decimal.NewFromInt(res.FundTotal)

	res.WeeklyAmount = RoundDown50(fund.Mul(cfg.WeeklyPercent))
	res.SeasonAmount = RoundDown50(fund.Mul(cfg.SeasonPercent))
	res.Dispatchers = dispatcherBonus(in.Participants, fund.Mul(cfg.PerDispatcherPercent()))
	for _, d := range res.Dispatchers.PerDispatcherAmounts {
		res.DispatcherAmountTotal += d.Amount
	}
	res.FundTotalAfterWithhold = res.FundTotal - res.WeeklyAmount - res.SeasonAmount - res.DispatcherAmountTotal

	next := advanceStates(in)
	res.NextStates = sortedStates(next)

	bonus := make(map[string]int64, len(res.Dispatchers.PerDispatcherAmounts))
	for _, d := range res.Dispatchers.PerDispatcherAmounts {
		bonus[d.ParticipantID] = d.Amount
	}

	for _, p := range in.Participants {
		st := next[p.ParticipantID]
		pr := ParticipantResult{
			ParticipantID:    p.ParticipantID,
			Role:             p.Role,
			Revenue:          p.Revenue,
			Level:            st.CurrentLevel,
			StreakDays:       st.StreakDays,
			PointsBase:       decimal.Zero,
			StreakMultiplier: decimal.NewFromInt(1),
			PointsTotal:      decimal.Zero,
		}
		if res.PointsEnabled {
			pr.PointsBase = pointsBase(p, cfg)
			pr.StreakMultiplier = StreakMultiplier(st.StreakDays)
			pr.PointsTotal = pr.PointsBase.Mul(pr.StreakMultiplier)
		}
		if p.Role == shared.RoleDispatcher {
			pr.Payout = bonus[p.ParticipantID]
		}
		res.Participants = append(res.Participants, pr)
	}

	if res.PointsEnabled {
		res.IndividualFund = fund.Mul(cfg.IndividualShare).Floor().IntPart()
		res.TeamFund = fund.Mul(cfg.TeamShare).Floor().IntPart()
	}
	distribute(res, cfg)
	return res
}

// pointsBase sums revenue/1000 * k_category * k_zone over the participant's buckets
func pointsBase(p aggregate.ParticipantRevenue, cfg settings.Settings) decimal.Decimal {
	keys := make([]aggregate.CategoryZone, 0, len(p.RevenueByCategoryZone))
	for k := range p.RevenueByCategoryZone {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Zone < keys[j].Zone
	})

	total := decimal.Zero
	for _, k := range keys {
		rev := decimal.NewFromInt(p.RevenueByCategoryZone[k])
		points := rev.Div(thousand).Mul(cfg.CategoryCoefficient(k.Category)).Mul(cfg.ZoneCoefficient(k.Zone))
		total = total.Add(points)
	}
	return total
}

// dispatcherBonus pays at most two active dispatchers, highest revenue first
func dispatcherBonus(participants []aggregate.ParticipantRevenue, perPerson decimal.Decimal) Dispatchers {
	var active []aggregate.ParticipantRevenue
	for _, p := range participants {
		if p.Role == shared.RoleDispatcher && p.Revenue > 0 {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Revenue != active[j].Revenue {
			return active[i].Revenue > active[j].Revenue
		}
		return active[i].ParticipantID < active[j].ParticipantID
	})
	if len(active) > settings.MaxPaidDispatchers {
		active = active[:settings.MaxPaidDispatchers]
	}

	out := Dispatchers{ActiveCount: len(active), PerDispatcherAmounts: []DispatcherAmount{}}
	amount := RoundDown50(perPerson)
	for _, p := range active {
		out.PerDispatcherAmounts = append(out.PerDispatcherAmounts, DispatcherAmount{
			ParticipantID: p.ParticipantID,
			Revenue:       p.Revenue,
			Amount:        amount,
		})
	}
	return out
}

// distribute splits the after-withhold pool. Team and personal modes share
// it among every participant with revenue, dispatchers included on top of
// their bonus; adaptive mode shares it among active sellers.
func distribute(res *Result, cfg settings.Settings) {
	var active []int
	var revenueSum int64
	pointsSum := decimal.Zero
	for i, p := range res.Participants {
		if p.Revenue <= 0 {
			continue
		}
		if res.Mode == settings.ModeAdaptive && p.Role != shared.RoleSeller {
			continue
		}
		active = append(active, i)
		revenueSum += p.Revenue
		if p.PointsTotal.IsPositive() {
			pointsSum = pointsSum.Add(p.PointsTotal)
		}
	}
	if len(active) == 0 || res.FundTotalAfterWithhold <= 0 {
		return
	}

	pool := decimal.NewFromInt(res.FundTotalAfterWithhold)
	count := decimal.NewFromInt(int64(len(active)))

	for _, i := range active {
		p := &res.Participants[i]
		var share decimal.Decimal
		switch res.Mode {
		case settings.ModeTeam:
			share = pool.Div(count)
		case settings.ModePersonal:
			share = pool.Mul(decimal.NewFromInt(p.Revenue)).Div(decimal.NewFromInt(revenueSum))
		default:
			individual := pool.Mul(cfg.IndividualShare)
			team := pool.Mul(cfg.TeamShare)
			if pointsSum.IsPositive() {
				individual = individual.Mul(decimal.Max(p.PointsTotal, decimal.Zero)).Div(pointsSum)
			} else {
				individual = individual.Div(count)
			}
			share = individual.Add(team.Div(count))
		}
		p.Payout += share.Floor().IntPart()
	}
}

func advanceStates(in Input) map[string]motivation.State {
	revenue := make(map[string]int64, len(in.Participants))
	for _, p := range in.Participants {
		revenue[p.ParticipantID] = p.Revenue
	}

	next := make(map[string]motivation.State, len(in.States)+len(in.Participants))
	for id, st := range in.States {
		next[id] = st.Advance(in.BusinessDay, revenue[id])
	}
	for _, p := range in.Participants {
		if _, ok := next[p.ParticipantID]; ok {
			continue
		}
		next[p.ParticipantID] = motivation.NewState(p.ParticipantID).Advance(in.BusinessDay, p.Revenue)
	}
	return next
}

func sortedStates(states map[string]motivation.State) []motivation.State {
	out := make([]motivation.State, 0, len(states))
	for _, st := range states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}
