// Package validate holds shape checks for the answers collected during booking.
package validate

import (
	"regexp"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	timePattern  = regexp.MustCompile(`(?i)^\d{1,2}:\d{2} ?(AM|PM)?$`)
)

const (
	minPhoneDigits = 8
	dateLayout     = "2006-01-02"
)

func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Phone accepts digits only, at least eight of them.
func Phone(s string) bool {
	if len(s) < minPhoneDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Date accepts YYYY-MM-DD and rejects impossible calendar days.
func Date(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func Time(s string) bool {
	return timePattern.MatchString(s)
}
