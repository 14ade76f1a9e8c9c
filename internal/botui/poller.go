package botui

import (
	"context"
	"time"

	"github.com/nkaliyev/tengebot/internal/logger"
	"github.com/nkaliyev/tengebot/internal/telegram"
)

// UpdateSource is the long-poll side of the Telegram client.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
}

var _ UpdateSource = (*telegram.Client)(nil)

const pollRetryDelay = 3 * time.Second

// Poller pulls updates off the Bot API and feeds them to the dispatcher.
type Poller struct {
	source     UpdateSource
	dispatcher *Dispatcher
	timeout    int
}

// NewPoller creates a poller with the given long-poll window. The telegram
// client's HTTP timeout must sit above it.
func NewPoller(source UpdateSource, dispatcher *Dispatcher, timeout time.Duration) *Poller {
	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return &Poller{source: source, dispatcher: dispatcher, timeout: seconds}
}

// Run long-polls until the context is canceled. Fetch errors back off and
// retry; the confirmed offset only moves past updates that were handed to
// the dispatcher.
func (p *Poller) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Fetching updates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if err := p.dispatcher.Dispatch(upd); err != nil {
				log.Warn().Err(err).Int64("update_id", upd.UpdateID).Msg("Dispatching update failed")
			}
		}
	}
}
