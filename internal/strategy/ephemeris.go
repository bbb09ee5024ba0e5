package strategy

import (
	"fmt"
	"math"
	"time"
)

// lunarCycleDays is the synodic month used for the phase calculation.
const lunarCycleDays = 29.53

// MoonPhase names one of the eight equal lunar phase bins.
type MoonPhase string

const (
	NewMoon        MoonPhase = "New Moon"
	WaxingCrescent MoonPhase = "Waxing Crescent"
	FirstQuarter   MoonPhase = "First Quarter"
	WaxingGibbous  MoonPhase = "Waxing Gibbous"
	FullMoon       MoonPhase = "Full Moon"
	WaningGibbous  MoonPhase = "Waning Gibbous"
	LastQuarter    MoonPhase = "Last Quarter"
	WaningCrescent MoonPhase = "Waning Crescent"
)

// phaseBins pairs each phase with the exclusive upper bound of its cycle fraction.
var phaseBins = []struct {
	upper float64
	phase MoonPhase
}{
	{0.0625, NewMoon},
	{0.1875, WaxingCrescent},
	{0.3125, FirstQuarter},
	{0.4375, WaxingGibbous},
	{0.5625, FullMoon},
	{0.6875, WaningGibbous},
	{0.8125, LastQuarter},
}

// moonPhaseAt returns the phase for t, counted from the new moon of 2000-01-06
// at midnight in t's location.
func moonPhaseAt(t time.Time) MoonPhase {
	ref := time.Date(2000, time.January, 6, 0, 0, 0, 0, t.Location())
	days := t.Sub(ref).Hours() / 24
	age := math.Mod(days, lunarCycleDays)
	if age < 0 {
		age += lunarCycleDays
	}
	frac := age / lunarCycleDays
	for _, b := range phaseBins {
		if frac < b.upper {
			return b.phase
		}
	}
	return WaningCrescent
}

// Body is a classical planet ruling an hour of the day.
type Body string

const (
	Sun     Body = "Sun"
	Moon    Body = "Moon"
	Mars    Body = "Mars"
	Mercury Body = "Mercury"
	Jupiter Body = "Jupiter"
	Venus   Body = "Venus"
	Saturn  Body = "Saturn"
)

// hourRulers is indexed by weekday (Sunday first) then by hour bin.
var hourRulers = [7][7]Body{
	{Sun, Venus, Mercury, Moon, Saturn, Jupiter, Mars},
	{Moon, Saturn, Jupiter, Mars, Sun, Venus, Mercury},
	{Mars, Sun, Venus, Mercury, Moon, Saturn, Jupiter},
	{Mercury, Moon, Saturn, Jupiter, Mars, Sun, Venus},
	{Jupiter, Mars, Sun, Venus, Mercury, Moon, Saturn},
	{Venus, Mercury, Moon, Saturn, Jupiter, Mars, Sun},
	{Saturn, Jupiter, Mars, Sun, Venus, Mercury, Moon},
}

// hourBinWidth splits the shifted 24-hour day into seven unequal bins.
const hourBinWidth = 3.43

func planetaryHour(hour int, weekday time.Weekday) Body {
	shifted := (hour + 18) % 24
	idx := int(math.Floor(float64(shifted)/hourBinWidth)) % 7
	return hourRulers[weekday][idx]
}

// digitRoot sums decimal digits repeatedly until the value is at most 9.
func digitRoot(n int) int {
	for n > 9 {
		sum := 0
		for n > 0 {
			sum += n % 10
			n /= 10
		}
		n = sum
	}
	return n
}

// Season is a fixed three-month bin.
type Season string

const (
	Spring Season = "Spring"
	Summer Season = "Summer"
	Autumn Season = "Autumn"
	Winter Season = "Winter"
)

func seasonOf(m time.Month) Season {
	switch {
	case m >= time.March && m <= time.May:
		return Spring
	case m >= time.June && m <= time.August:
		return Summer
	case m >= time.September && m <= time.November:
		return Autumn
	default:
		return Winter
	}
}

// Date is a calendar day without a time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Window is a closed interval of calendar days, both ends inclusive.
type Window struct {
	Start Date
	End   Date
}

func (w Window) contains(d Date) bool {
	return !d.before(w.Start) && !w.End.before(d)
}

// Ephemeris lists Mercury retrograde windows keyed by calendar year.
// A window crossing a year boundary is listed under both years.
type Ephemeris map[int][]Window

// DefaultEphemeris covers 2024 and 2025.
func DefaultEphemeris() Ephemeris {
	return Ephemeris{
		2024: {
			{Date{2024, time.April, 1}, Date{2024, time.April, 25}},
			{Date{2024, time.August, 5}, Date{2024, time.August, 28}},
			{Date{2024, time.November, 25}, Date{2024, time.December, 15}},
		},
		2025: {
			{Date{2025, time.March, 14}, Date{2025, time.April, 7}},
			{Date{2025, time.July, 18}, Date{2025, time.August, 11}},
			{Date{2025, time.November, 9}, Date{2025, time.November, 29}},
		},
	}
}

// Add inserts a window under every year it touches.
func (e Ephemeris) Add(w Window) error {
	if w.End.before(w.Start) {
		return fmt.Errorf("retrograde window %s..%s ends before it starts", w.Start, w.End)
	}
	for y := w.Start.Year; y <= w.End.Year; y++ {
		e[y] = append(e[y], w)
	}
	return nil
}

// Retrograde reports whether t falls inside a window. known is false when the
// ephemeris has no entry for t's year.
func (e Ephemeris) Retrograde(t time.Time) (retro, known bool) {
	windows, ok := e[t.Year()]
	if !ok {
		return false, false
	}
	d := Date{t.Year(), t.Month(), t.Day()}
	for _, w := range windows {
		if w.contains(d) {
			return true, true
		}
	}
	return false, true
}
