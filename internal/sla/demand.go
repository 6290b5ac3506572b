package sla

import (
	"time"

	"github.com/rickar/cal/v2"
)

const (
	DefaultPeakFactor     = 1.2
	DefaultOffHoursFactor = 0.8
	DefaultNormalFactor   = 1.0
)

// DemandSource supplies the multiplier applied to SLA windows at a given instant.
type DemandSource interface {
	Factor(at time.Time) float64
}

// FixedDemand returns the same factor regardless of time.
type FixedDemand float64

// Factor implements DemandSource.
func (f FixedDemand) Factor(time.Time) float64 { return float64(f) }

// HourlyDemand buckets by local hour of day: the peak window (09:00-17:59)
// stretches deadlines, off-hours (before 08:00, 19:00 onwards) compress them.
type HourlyDemand struct {
	Location       *time.Location
	PeakFactor     float64
	OffHoursFactor float64
	NormalFactor   float64
}

// NewHourlyDemand builds the reference policy in the given location.
func NewHourlyDemand(loc *time.Location) *HourlyDemand {
	if loc == nil {
		loc = time.Local
	}
	return &HourlyDemand{
		Location:       loc,
		PeakFactor:     DefaultPeakFactor,
		OffHoursFactor: DefaultOffHoursFactor,
		NormalFactor:   DefaultNormalFactor,
	}
}

// Factor implements DemandSource.
func (h *HourlyDemand) Factor(at time.Time) float64 {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	hour := at.In(loc).Hour()
	switch {
	case hour >= 9 && hour < 18:
		return h.PeakFactor
	case hour < 8 || hour >= 19:
		return h.OffHoursFactor
	default:
		return h.NormalFactor
	}
}

// CalendarDemand treats non-working days as off-hours and defers to the
// wrapped source on working days.
type CalendarDemand struct {
	Calendar       *cal.BusinessCalendar
	Next           DemandSource
	OffHoursFactor float64
	Location       *time.Location
}

// NewCalendarDemand wraps next with a Mon-Fri calendar carrying the given holidays.
func NewCalendarDemand(next DemandSource, loc *time.Location, offHours float64, holidays ...*cal.Holiday) *CalendarDemand {
	c := cal.NewBusinessCalendar()
	c.SetWorkday(time.Saturday, false)
	c.SetWorkday(time.Sunday, false)
	c.AddHoliday(holidays...)
	if loc == nil {
		loc = time.Local
	}
	return &CalendarDemand{Calendar: c, Next: next, OffHoursFactor: offHours, Location: loc}
}

// Factor implements DemandSource.
func (d *CalendarDemand) Factor(at time.Time) float64 {
	local := at.In(d.Location)
	if d.Calendar != nil && !d.Calendar.IsWorkday(local) {
		return d.OffHoursFactor
	}
	return d.Next.Factor(at)
}

// FixedHoliday builds a recurring public holiday on a month/day.
func FixedHoliday(name string, month time.Month, day int) *cal.Holiday {
	return &cal.Holiday{
		Name:  name,
		Type:  cal.ObservancePublic,
		Month: month,
		Day:   day,
		Func:  cal.CalcDayOfMonth,
	}
}
