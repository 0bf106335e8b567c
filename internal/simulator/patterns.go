package simulator

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes the simulated request load at a given instant. Taking
// the timestamp as input keeps history windows reproducible: asking for
// yesterday's samples yields the same curve every time.
type Pattern interface {
	Apply(at time.Time, base float64) float64
	Name() string
}

var (
	PatternSteady Pattern = &SteadyPattern{}
	PatternDaily  Pattern = &DailyPattern{}
	PatternWeekly Pattern = &WeeklyPattern{}
	PatternRandom Pattern = &RandomPattern{}
	PatternCyclic Pattern = &SineWavePattern{}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "random":
		return PatternRandom
	case "cyclical", "sine":
		return &SineWavePattern{}
	case "gradual_rise":
		return &GradualRisePattern{startTime: time.Now()}
	default:
		return PatternSteady
	}
}

// SteadyPattern - constant load
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(at time.Time, base float64) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern - simulates daily traffic cycle (high during business hours)
type DailyPattern struct{}

func (p *DailyPattern) Apply(at time.Time, base float64) float64 {
	hour := at.Hour()

	// Peak hours: 9-11 AM and 2-4 PM
	// Low hours: 12-6 AM
	var modifier float64
	switch {
	case hour >= 9 && hour <= 11:
		modifier = 1.4
	case hour >= 14 && hour <= 16:
		modifier = 1.3
	case hour >= 17 && hour <= 20:
		modifier = 1.1
	case hour >= 0 && hour <= 6:
		modifier = 0.6
	default:
		modifier = 1.0
	}

	return base * modifier
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern - includes weekend reduction
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(at time.Time, base float64) float64 {
	weekday := at.Weekday()
	hour := at.Hour()

	var modifier float64 = 1.0

	if weekday == time.Saturday || weekday == time.Sunday {
		modifier = 0.5
	} else {
		switch {
		case hour >= 9 && hour <= 11:
			modifier = 1.4
		case hour >= 14 && hour <= 16:
			modifier = 1.3
		case hour >= 0 && hour <= 6:
			modifier = 0.6
		}
	}

	return base * modifier
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// RandomPattern - unpredictable load between half and 1.5x the base
type RandomPattern struct{}

func (p *RandomPattern) Apply(at time.Time, base float64) float64 {
	modifier := 0.5 + rand.Float64()
	return base * modifier
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern - slowly increasing load
type GradualRisePattern struct {
	startTime time.Time
}

func (p *GradualRisePattern) Apply(at time.Time, base float64) float64 {
	minutes := at.Sub(p.startTime).Minutes()
	if minutes < 0 {
		return base
	}

	// Increase by 2% per minute, capped at 50% increase
	increasePercent := math.Min(minutes*2, 50)
	return base * (1.0 + increasePercent/100)
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}

// SineWavePattern - smooth oscillation around the base load
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64 // fraction of base, e.g. 0.3
}

func (p *SineWavePattern) Apply(at time.Time, base float64) float64 {
	period := p.Period
	if period == 0 {
		period = 30 * time.Minute
	}
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 0.3
	}

	phase := float64(at.UnixNano()) / float64(period.Nanoseconds()) * 2 * math.Pi
	return base * (1 + math.Sin(phase)*amplitude)
}

func (p *SineWavePattern) Name() string {
	return "cyclical"
}
