package messaging

import (
	"context"

	"github.com/rs/zerolog"
)

// Consume subscribes to channels and runs handler for every message until
// ctx is done. Handler errors are logged and the message is dropped.
func Consume(ctx context.Context, broker Broker, logger *zerolog.Logger, handler Handler, channels ...string) error {
	for _, channel := range channels {
		msgs, err := broker.Subscribe(ctx, channel)
		if err != nil {
			return err
		}

		go func(channel string, msgs <-chan []byte) {
			for msg := range msgs {
				if err := handler(ctx, msg); err != nil {
					logger.Error().Err(err).Str("channel", channel).Msg("failed to handle message")
				}
			}
		}(channel, msgs)
	}
	return nil
}
