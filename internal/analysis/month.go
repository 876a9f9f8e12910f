// Package analysis turns a player's games into clustered mistake habits.
package analysis

import (
	"fmt"
	"time"

	"github.com/sakif/chess-coach/internal/apperror"
)

// Month is one calendar month of a game archive.
type Month struct {
	Year  int
	Month time.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// ParseMonth parses "YYYY-MM". The year is capped to a sane archive range;
// Chess.com launched in 2007.
func ParseMonth(field, value string) (Month, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Month{}, apperror.ValidationFailed(field, fmt.Sprintf("%q is not a valid YYYY-MM month", value))
	}
	if t.Year() < 2007 || t.Year() > time.Now().Year()+1 {
		return Month{}, apperror.ValidationFailed(field, fmt.Sprintf("year %d is outside the supported range", t.Year()))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthsBetween returns every month from start to end inclusive.
// start must not be after end.
func MonthsBetween(start, end Month) []Month {
	var months []Month
	for m := start; !end.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}
