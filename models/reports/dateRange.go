package reports

import (
	"strings"
	"time"

	"github.com/mmdatafocus/billing_backend/utils"
)

// DateRange is inclusive on both ends, at day granularity.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (dr DateRange) Contains(t time.Time) bool {
	d := utils.DateOnly(t)
	return !d.Before(dr.From) && !d.After(dr.To)
}

// RangeInput is the raw range selection of a report request.
// Precedence: from/to, then month, then fiscal year.
type RangeInput struct {
	From       string `form:"from" json:"from"`
	To         string `form:"to" json:"to"`
	Month      string `form:"month" json:"month"`
	FiscalYear string `form:"fy" json:"fy"`
}

func (in RangeInput) IsEmpty() bool {
	return strings.TrimSpace(in.From) == "" && strings.TrimSpace(in.To) == "" &&
		strings.TrimSpace(in.Month) == "" && strings.TrimSpace(in.FiscalYear) == ""
}

// ResolveDateRange turns the input into a range, defaulting to the calendar month of now.
func ResolveDateRange(in RangeInput, now time.Time) (DateRange, error) {
	from, to := strings.TrimSpace(in.From), strings.TrimSpace(in.To)
	switch {
	case from != "" || to != "":
		if from == "" || to == "" {
			return DateRange{}, utils.ValidationError("from and to must be given together")
		}
		start, err := utils.ParseDate(from)
		if err != nil {
			return DateRange{}, err
		}
		end, err := utils.ParseDate(to)
		if err != nil {
			return DateRange{}, err
		}
		if start.After(end) {
			return DateRange{}, utils.ValidationError("from date must not be after to date")
		}
		return DateRange{From: start, To: end}, nil
	case strings.TrimSpace(in.Month) != "":
		year, month, err := utils.ParseMonth(in.Month)
		if err != nil {
			return DateRange{}, err
		}
		start, end := utils.GetMonthRange(year, month)
		return DateRange{From: start, To: end}, nil
	case strings.TrimSpace(in.FiscalYear) != "":
		startYear, err := utils.ParseFiscalYear(in.FiscalYear)
		if err != nil {
			return DateRange{}, err
		}
		start, end := utils.GetFiscalYearRange(startYear)
		return DateRange{From: start, To: end}, nil
	}
	start, end := utils.GetThisMonthRange(now)
	return DateRange{From: start, To: end}, nil
}

// ResolveOptionalRange is ResolveDateRange for reports that default to all time.
func ResolveOptionalRange(in RangeInput, now time.Time) (*DateRange, error) {
	if in.IsEmpty() {
		return nil, nil
	}
	dr, err := ResolveDateRange(in, now)
	if err != nil {
		return nil, err
	}
	return &dr, nil
}
