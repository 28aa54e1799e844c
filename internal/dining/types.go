package dining

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MealPeriod names one of the fixed service windows the reservation site
// uses to group table availability.
type MealPeriod string

const (
	Breakfast MealPeriod = "breakfast"
	Lunch     MealPeriod = "lunch"
	Dinner    MealPeriod = "dinner"
)

func ParseMealPeriod(s string) (MealPeriod, error) {
	switch m := MealPeriod(strings.ToLower(strings.TrimSpace(s))); m {
	case Breakfast, Lunch, Dinner:
		return m, nil
	}
	return "", &ValidationError{Field: "mealPeriod", Reason: fmt.Sprintf("unknown meal period %q (want breakfast|lunch|dinner)", s)}
}

// Window returns the inclusive clock-time range for the meal period.
// The windows do not overlap.
func (m MealPeriod) Window() (start, end ClockTime) {
	switch m {
	case Breakfast:
		return ClockTime{Hour: 7}, ClockTime{Hour: 10, Minute: 59}
	case Lunch:
		return ClockTime{Hour: 11}, ClockTime{Hour: 15, Minute: 59}
	case Dinner:
		return ClockTime{Hour: 16}, ClockTime{Hour: 22}
	}
	return ClockTime{}, ClockTime{}
}

// Contains reports whether t falls inside the meal window, boundaries
// included.
func (m MealPeriod) Contains(t ClockTime) bool {
	start, end := m.Window()
	return !t.Before(start) && !end.Before(t)
}

// ClockTime is a wall-clock time of day in the restaurant's local zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM". A trailing seconds component is accepted
// and ignored, matching what the endpoint sometimes returns.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) < 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("time %q out of range", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c ClockTime) Before(o ClockTime) bool {
	return c.Hour < o.Hour || (c.Hour == o.Hour && c.Minute < o.Minute)
}

// TimeSlot is one open reservation time returned by the availability
// endpoint. Presence in the response means the slot is bookable.
type TimeSlot struct {
	Time ClockTime
}

// ReservationQuery describes one watch request. Fields are set at
// construction and never mutated.
type ReservationQuery struct {
	EntityID  string
	Date      time.Time // calendar date; time-of-day is ignored
	Meal      MealPeriod
	PartySize int
}

// Validate checks the query against a reference time. The date must not
// be before the current calendar day.
func (q ReservationQuery) Validate(now time.Time) error {
	if strings.TrimSpace(q.EntityID) == "" {
		return &ValidationError{Field: "entityId", Reason: "required"}
	}
	if q.PartySize < 1 {
		return &ValidationError{Field: "partySize", Reason: "must be a positive integer"}
	}
	if _, err := ParseMealPeriod(string(q.Meal)); err != nil {
		return err
	}
	if q.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if q.Date.Before(today) {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("%s is in the past", q.DateString())}
	}
	return nil
}

func (q ReservationQuery) DateString() string { return q.Date.Format("2006-01-02") }

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", s)}
	}
	return t, nil
}

// EarliestInWindow returns the earliest slot whose time falls inside the
// meal window. The choice is deterministic under any response ordering.
func EarliestInWindow(meal MealPeriod, slots []TimeSlot) (TimeSlot, bool) {
	var best TimeSlot
	found := false
	for _, s := range slots {
		if !meal.Contains(s.Time) {
			continue
		}
		if !found || s.Time.Before(best.Time) {
			best = s
			found = true
		}
	}
	return best, found
}

// BookingLink builds the deep link included in a match alert.
func BookingLink(siteRoot, entityID string, date time.Time, partySize int) string {
	return fmt.Sprintf("%s/dine-reservation/%s/%s/%d",
		strings.TrimRight(siteRoot, "/"), entityID, date.Format("2006-01-02"), partySize)
}
