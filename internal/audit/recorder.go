package audit

import (
	"context"
	"time"

	"github.com/perito-digital/platform/internal/shared/auth"
	"github.com/perito-digital/platform/internal/shared/metrics"
	"github.com/perito-digital/platform/internal/shared/types"
	"github.com/rs/zerolog"
)

// Recorder writes audit entries on behalf of the domain handlers.
// Recording failures are logged but never propagated: an audit outage
// must not block forensic work, the trail catches up on the next action.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record appends an audit entry for an action performed by actor.
// caseID and details may be nil.
func (rec *Recorder) Record(ctx context.Context, actor *auth.User, action string, caseID *types.ID, details map[string]any) {
	var actorID types.ID
	var actorName, actorRole string
	if actor != nil {
		actorID = actor.ID
		actorName = actor.Name
		actorRole = string(actor.Role)
	}

	entry := NewEntry(actorID, actorName, actorRole, action, caseID, details, rec.repo.GetLastHash())

	// Detached context so a cancelled request doesn't drop the entry
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := rec.repo.Append(appendCtx, entry); err != nil {
		rec.logger.Error().
			Err(err).
			Str("action", action).
			Str("actor_id", actorID.String()).
			Msg("failed to append audit entry")
		return
	}

	metrics.RecordAuditEntry(action)
}
