package bot

import (
	"runtime/debug"

	"github.com/rs/zerolog"
)

func (b *Bot) withRecovery(logger *zerolog.Logger, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).
				Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}
