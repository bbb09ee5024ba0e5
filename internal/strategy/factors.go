package strategy

import (
	"fmt"
	"time"

	"AstroSwap/internal/model"
)

func kindOf(points int) model.FactorKind {
	switch {
	case points < 0:
		return model.FactorNegative
	case points >= 10:
		return model.FactorPositive
	default:
		return model.FactorNeutral
	}
}

// scoreMoonPhase favours the waxing half of the cycle.
// New Moon / Waxing Crescent +25, Waxing Gibbous / Full Moon +15, Waning Gibbous +5, else -10.
func scoreMoonPhase(phase MoonPhase) model.Factor {
	switch phase {
	case NewMoon, WaxingCrescent:
		return model.Factor{Kind: model.FactorPositive, Icon: "🌑", Label: string(phase),
			Description: "New lunar cycle, ideal for fresh positions", Points: 25}
	case WaxingGibbous, FullMoon:
		return model.Factor{Kind: model.FactorPositive, Icon: "🌕", Label: string(phase),
			Description: "Strong lunar energy supports trading", Points: 15}
	case WaningGibbous:
		return model.Factor{Kind: model.FactorNeutral, Icon: "🌖", Label: string(phase),
			Description: "Reflection period, moderate energy", Points: 5}
	default:
		return model.Factor{Kind: model.FactorNegative, Icon: "🌘", Label: string(phase),
			Description: "Waning lunar energy restricts flows", Points: -10}
	}
}

var weekdayFactors = map[time.Weekday]model.Factor{
	time.Sunday:    {Icon: "☀️", Label: "Sunday (Sun)", Description: "Solar energy, neutral for acquisitions", Points: 5},
	time.Monday:    {Icon: "🌙", Label: "Monday (Moon)", Description: "Lunar day enhances energy flows", Points: 18},
	time.Tuesday:   {Icon: "🔥", Label: "Tuesday (Mars)", Description: "Aggressive energy, moderate outlook", Points: 8},
	time.Wednesday: {Icon: "💨", Label: "Wednesday (Mercury)", Description: "Mercury rules commerce, excellent for trades", Points: 20},
	time.Thursday:  {Icon: "🪐", Label: "Thursday (Jupiter)", Description: "Expansion energy favours adoption", Points: 15},
	time.Friday:    {Icon: "💕", Label: "Friday (Venus)", Description: "Harmonious energy attracts wealth", Points: 12},
	time.Saturday:  {Icon: "🪨", Label: "Saturday (Saturn)", Description: "Restrictive energy, flows limited", Points: -5},
}

func scoreWeekday(d time.Weekday) model.Factor {
	f := weekdayFactors[d]
	f.Kind = kindOf(f.Points)
	return f
}

var bodyPoints = map[Body]int{
	Mercury: 20,
	Moon:    18,
	Jupiter: 15,
	Venus:   15,
	Sun:     10,
	Mars:    5,
	Saturn:  -10,
}

// Sun hours count as neutral even though they add ten points.
var bodyKinds = map[Body]model.FactorKind{
	Mercury: model.FactorPositive,
	Moon:    model.FactorPositive,
	Jupiter: model.FactorPositive,
	Venus:   model.FactorPositive,
	Sun:     model.FactorNeutral,
	Mars:    model.FactorNeutral,
	Saturn:  model.FactorNegative,
}

var bodyDescriptions = map[Body]string{
	Mercury: "Optimal hour for trades and communication",
	Moon:    "Lunar hour enhances flow energy",
	Jupiter: "Favourable energy for wealth and expansion",
	Venus:   "Favourable energy for wealth and expansion",
	Sun:     "Solar energy, moderate for financial decisions",
	Mars:    "Aggressive energy, proceed with caution",
	Saturn:  "Restrictive energy, not ideal for trading",
}

func scorePlanetaryHour(b Body) model.Factor {
	points := bodyPoints[b]
	return model.Factor{
		Kind:        bodyKinds[b],
		Icon:        "✨",
		Label:       fmt.Sprintf("%s Hour", b),
		Description: bodyDescriptions[b],
		Points:      points,
	}
}

// scoreNumerology reduces the day of month to a single digit.
// {3,6,9} +15, {1,8} +10, {2,5,7} +5, else 0.
func scoreNumerology(dayOfMonth int) model.Factor {
	root := digitRoot(dayOfMonth)
	f := model.Factor{Icon: "🔢", Label: fmt.Sprintf("Day %d (%d)", dayOfMonth, root)}
	switch root {
	case 3, 6, 9:
		f.Points, f.Description = 15, "Flow number, perfect energy"
	case 1, 8:
		f.Points, f.Description = 10, "Manifestation number, good for acquisition"
	case 2, 5, 7:
		f.Points, f.Description = 5, "Balanced energy"
	default:
		f.Points, f.Description = 0, "Neutral numerological influence"
	}
	f.Kind = kindOf(f.Points)
	return f
}

// scoreRetrograde penalises retrograde windows. A year the ephemeris does not
// cover is scored as retrograde.
func scoreRetrograde(retro, known bool) model.Factor {
	switch {
	case !known:
		return model.Factor{Kind: model.FactorNegative, Icon: "☿", Label: "Mercury Retrograde (no ephemeris)",
			Description: "No retrograde data for this year, assuming disruption", Points: -20}
	case retro:
		return model.Factor{Kind: model.FactorNegative, Icon: "☿", Label: "Mercury Retrograde",
			Description: "Communication disruptions, reduce activity", Points: -20}
	default:
		return model.Factor{Kind: model.FactorPositive, Icon: "☿", Label: "Mercury Direct",
			Description: "Clear communication, excellent for trades", Points: 10}
	}
}

func scoreSeason(s Season) model.Factor {
	switch s {
	case Spring:
		return model.Factor{Kind: model.FactorPositive, Icon: "🌸", Label: string(s),
			Description: "Growth and new financial flows", Points: 10}
	case Summer:
		return model.Factor{Kind: model.FactorPositive, Icon: "☀️", Label: string(s),
			Description: "Peak energy and expansion", Points: 8}
	case Autumn:
		return model.Factor{Kind: model.FactorNeutral, Icon: "🍂", Label: string(s),
			Description: "Harvest energy, time to consolidate", Points: 5}
	default:
		return model.Factor{Kind: model.FactorNeutral, Icon: "❄️", Label: string(s),
			Description: "Reflection period, slow accumulation", Points: 2}
	}
}
