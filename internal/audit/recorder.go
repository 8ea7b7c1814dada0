package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/garuda-portal/apiserver/internal/mq"
	"github.com/garuda-portal/apiserver/types"
	"github.com/google/uuid"
)

// Recorder publishes audit events to the configured bus. A nil Recorder
// is valid and records nothing, so callers never need to branch.
type Recorder struct {
	bus     *mq.MQ
	channel string
}

// NewRecorder constructs a Recorder publishing to the named channel.
func NewRecorder(bus *mq.MQ, channel string) *Recorder {
	return &Recorder{bus: bus, channel: channel}
}

// Record publishes one audit event. Publish failures are logged, not
// propagated: the audit trail must never fail the request that caused it.
func (r *Recorder) Record(ctx context.Context, action string, actorID, subjectID int64, detail map[string]string) {
	if r == nil || r.bus == nil {
		return
	}

	event := types.AuditEvent{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		SubjectID:  subjectID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("audit: marshal event %s: %v", action, err)
		return
	}

	attrs := map[string]string{"action": action}
	if _, err := r.bus.Publish(ctx, r.channel, data, attrs); err != nil {
		log.Printf("audit: publish event %s: %v", action, err)
	}
}
