package bot

import (
	"errors"

	"medbook/internal/domain"
)

const msgGenericError = "Sorry, something went wrong while handling your message. Please try again later."

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return "Please send a text message."
	case errors.Is(err, domain.ErrEmptyDocument):
		return "That document is empty."
	}
	return msgGenericError
}
