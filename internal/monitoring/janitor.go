package monitoring

import (
	"fmt"
	"time"

	"github.com/nliest/converse-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const orphanEventType = "chat.orphaned.message"

// Janitor periodically sweeps for conversations whose history ends in a
// user turn with no assistant reply. Those records are left behind when a
// completion call fails after the user's message was persisted; the sweep
// is the compensating read path that makes them visible.
type Janitor struct {
	chatSvc  services.ChatServiceProvider
	eventSvc services.EventServiceProvider
	schedule cron.Schedule
	grace    time.Duration
	nextRun  time.Time
	ticker   *time.Ticker
	done     chan bool
}

// NewJanitor creates a janitor from a standard cron expression.
func NewJanitor(chatSvc services.ChatServiceProvider, eventSvc services.EventServiceProvider, cronExpr string, grace time.Duration) (*Janitor, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", cronExpr, err)
	}

	return &Janitor{
		chatSvc:  chatSvc,
		eventSvc: eventSvc,
		schedule: schedule,
		grace:    grace,
		done:     make(chan bool),
	}, nil
}

// Run starts the janitor's ticking loop.
func (j *Janitor) Run() {
	log.Info().Msg("Starting maintenance janitor...")
	j.ticker = time.NewTicker(1 * time.Minute)
	defer j.ticker.Stop()

	// Run once immediately on start
	j.Sweep()
	j.nextRun = j.schedule.Next(time.Now())

	for {
		select {
		case <-j.done:
			log.Info().Msg("Stopping maintenance janitor.")
			return
		case <-j.ticker.C:
			now := time.Now()
			if now.After(j.nextRun) {
				j.Sweep()
				j.nextRun = j.schedule.Next(now)
			}
		}
	}
}

// Stop halts the janitor.
func (j *Janitor) Stop() {
	j.done <- true
}

// Sweep records an event for every newly found orphaned user message.
func (j *Janitor) Sweep() {
	stalled, err := j.chatSvc.FindStalledConversations(j.grace)
	if err != nil {
		log.Error().Err(err).Msg("Janitor: failed to query stalled conversations")
		return
	}

	for _, msg := range stalled {
		// An orphan event recorded after the message was written means
		// this one is already on file; events outlive restarts.
		seen, err := j.eventSvc.HasEventSince(orphanEventType, msg.ConversationID, msg.CreatedAt)
		if err != nil {
			log.Error().Err(err).Msg("Janitor: failed to check for existing orphan event")
			continue
		}
		if seen {
			continue
		}

		log.Warn().
			Str("conversation_id", msg.ConversationID).
			Str("message_id", msg.ID).
			Time("created_at", msg.CreatedAt).
			Msg("Janitor: user message has no assistant reply")

		convID := msg.ConversationID
		detail := fmt.Sprintf("user message %s from %s never received an assistant reply", msg.ID, msg.CreatedAt.Format(time.RFC3339))
		if err := j.eventSvc.CreateEvent(orphanEventType, "warn", detail, &convID); err != nil {
			log.Error().Err(err).Msg("Janitor: failed to record orphan event")
		}
	}
}
