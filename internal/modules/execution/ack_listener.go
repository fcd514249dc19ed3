package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mkosta/warroom/internal/modules/consensus"
)

// ackMessage is one acknowledgment frame from the broker gateway.
type ackMessage struct {
	DecisionID string `json:"decision_id"`
	Status     string `json:"status"`
}

// AckListener consumes the broker gateway's acknowledgment stream over
// a websocket and records acks against the execution log. Acks are
// bookkeeping only; nothing downstream reasons about them.
type AckListener struct {
	url       string
	decisions *consensus.DecisionRepository
	log       zerolog.Logger
}

// NewAckListener creates a listener for the given stream URL.
func NewAckListener(url string, decisions *consensus.DecisionRepository, log zerolog.Logger) *AckListener {
	return &AckListener{
		url:       url,
		decisions: decisions,
		log:       log.With().Str("component", "ack_listener").Logger(),
	}
}

// Run connects and consumes acks until the context is canceled,
// reconnecting with a fixed backoff after any connection failure.
func (l *AckListener) Run(ctx context.Context) {
	const reconnectDelay = 5 * time.Second

	for {
		if err := l.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("ack stream dropped, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *AckListener) consume(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	l.log.Info().Str("url", l.url).Msg("connected to broker ack stream")

	for {
		var msg ackMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}

		if msg.DecisionID == "" {
			continue
		}

		if err := l.decisions.AckExecution(ctx, msg.DecisionID, time.Now().UTC()); err != nil {
			l.log.Error().Err(err).Str("decision_id", msg.DecisionID).Msg("failed to record ack")
			continue
		}
		l.log.Debug().Str("decision_id", msg.DecisionID).Str("status", msg.Status).Msg("execution acknowledged")
	}
}
