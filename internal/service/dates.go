package service

import (
	"strings"
	"time"

	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
)

const dateLayout = "2006-01-02"

// accepted query date layouts, most specific first
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateLayout,
}

// parseDate parses an ISO-like date and returns it in loc, so calendar
// boundaries taken from it are loc's. dateOnly reports whether the value
// carried no time component.
func parseDate(value string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		t, err = time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t.In(loc), layout == dateLayout, nil
		}
	}
	return time.Time{}, false, err
}

// parseRange turns optional from/to query values into an inclusive range.
// A date-only "to" covers the whole of that day.
func parseRange(from, to string, loc *time.Location) (models.DateRange, error) {
	var rng models.DateRange

	if strings.TrimSpace(from) != "" {
		t, _, err := parseDate(from, loc)
		if err != nil {
			return rng, invalidDate("from", err)
		}
		rng.From = &t
	}

	if strings.TrimSpace(to) != "" {
		t, dateOnly, err := parseDate(to, loc)
		if err != nil {
			return rng, invalidDate("to", err)
		}
		if dateOnly {
			t = endOfDay(t)
		}
		rng.To = &t
	}

	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return rng, ierr.NewError("range end before start").
			WithHint("'to' must not be before 'from'").
			Mark(ierr.ErrValidation)
	}

	return rng, nil
}

func invalidDate(field string, err error) error {
	hint := "Invalid date"
	if field != "date" {
		hint = "Invalid " + field + " date"
	}
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]any{field: "date"}).
		Mark(ierr.ErrValidation)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

func endOfYear(t time.Time) time.Time {
	return startOfYear(t).AddDate(1, 0, 0).Add(-time.Nanosecond)
}

func window(start, end time.Time) models.DateRange {
	return models.DateRange{From: &start, To: &end}
}
