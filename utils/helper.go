package utils

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// returns slice removing duplicate elements
func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	return decimal.NewFromString(value)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ValidationError("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// ParseDateOr parses value, or returns def when value is blank.
func ParseDateOr(value string, def time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return DateOnly(def), nil
	}
	return ParseDate(value)
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetMonthRange returns the first and last calendar day of the month.
func GetMonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

func GetThisMonthRange(now time.Time) (time.Time, time.Time) {
	return GetMonthRange(now.Year(), now.Month())
}

// GetFiscalYearRange returns April 1 of startYear through March 31 of the next year.
func GetFiscalYearRange(startYear int) (time.Time, time.Time) {
	start := time.Date(startYear, time.April, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, -1)
	return start, end
}

// ParseMonth parses YYYY-MM.
func ParseMonth(value string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, ValidationError("invalid month %q, expected YYYY-MM", value)
	}
	return t.Year(), t.Month(), nil
}

// ParseFiscalYear accepts YYYY-YY or YYYY and returns the starting year.
// The two-digit suffix must be the year following the start year.
func ParseFiscalYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	head, tail, hasTail := strings.Cut(value, "-")
	if len(head) != 4 {
		return 0, ValidationError("invalid fiscal year %q", value)
	}
	startYear, err := strconv.Atoi(head)
	if err != nil {
		return 0, ValidationError("invalid fiscal year %q", value)
	}
	if hasTail {
		suffix, err := strconv.Atoi(tail)
		if err != nil || len(tail) != 2 || suffix != (startYear+1)%100 {
			return 0, ValidationError("invalid fiscal year %q", value)
		}
	}
	return startYear, nil
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
