// Package intent routes a message to the booking flow or to document answering.
package intent

import (
	"strings"

	"medbook/internal/models"
)

var DefaultKeywords = []string{"book", "appointment", "schedule", "consult", "doctor", "visit", "checkup"}

type KeywordClassifier struct {
	keywords []string
}

func NewKeywordClassifier(keywords ...string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lowered = append(lowered, strings.ToLower(k))
	}
	return &KeywordClassifier{keywords: lowered}
}

// Classify is a substring match, so "booking" and "rescheduled" count too.
func (c *KeywordClassifier) Classify(text string) models.Intent {
	lower := strings.ToLower(text)
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			return models.IntentBooking
		}
	}
	return models.IntentGeneral
}
