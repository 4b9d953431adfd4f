package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPeriod is returned for strings that are not YYYY-MM.
var ErrInvalidPeriod = errors.New("invalid period")

// ParsePeriod splits a YYYY-MM period into year and month (1-12).
func ParsePeriod(s string) (int, int, error) {
	ys, ms, ok := strings.Cut(s, "-")
	if !ok || len(ys) != 4 || len(ms) != 2 || !allDigits(ys) || !allDigits(ms) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return y, m, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsPeriod reports whether s is a well-formed YYYY-MM period.
func IsPeriod(s string) bool {
	_, _, err := ParsePeriod(s)
	return err == nil
}

// FormatPeriod renders year and month as a zero-padded YYYY-MM string.
func FormatPeriod(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// monthIndex maps a period onto a running month count (year*12 + month-1).
func monthIndex(s string) (int, error) {
	y, m, err := ParsePeriod(s)
	if err != nil {
		return 0, err
	}
	return y*12 + (m - 1), nil
}

// MonthsBetween returns end minus start in whole months. Negative when end precedes start.
func MonthsBetween(start, end string) (int, error) {
	a, err := monthIndex(start)
	if err != nil {
		return 0, err
	}
	b, err := monthIndex(end)
	if err != nil {
		return 0, err
	}
	return b - a, nil
}

// AddMonths shifts a period by count months (count may be negative).
func AddMonths(period string, count int) (string, error) {
	idx, err := monthIndex(period)
	if err != nil {
		return "", err
	}
	total := idx + count
	if total < 0 || total/12 > 9999 {
		return "", fmt.Errorf("%w: %q shifted by %d", ErrInvalidPeriod, period, count)
	}
	return FormatPeriod(total/12, total%12+1), nil
}

// MonthOf returns the calendar month (1-12) of a period.
func MonthOf(period string) (int, error) {
	_, m, err := ParsePeriod(period)
	return m, err
}
