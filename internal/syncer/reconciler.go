package syncer

import (
	"context"
	"fmt"

	"snorq/internal/domain/connection"
	"snorq/internal/domain/message"
	"snorq/internal/ingest"
	"snorq/internal/platform"
	"snorq/pkg/logger"
)

// Report describes what one sync run touched. Incomplete means at least one
// thread or page could not be fetched or applied; callers must not present
// an incomplete run as "up to date".
type Report struct {
	ConversationsSeen int
	MessagesApplied   int
	MessagesSkipped   int
	Incomplete        bool
}

// Reconciler is the pull counterpart of the webhook path: it pages through
// the platform's conversation list and message history and feeds every
// message through the same upsert identity as webhook ingestion, so pushed
// and pulled state converge to the same rows. Re-running with no new
// upstream data applies nothing.
type Reconciler struct {
	platform platform.Service
	engine   *ingest.Engine
	log      *logger.Logger
}

func NewReconciler(platformSvc platform.Service, engine *ingest.Engine, log *logger.Logger) *Reconciler {
	return &Reconciler{platform: platformSvc, engine: engine, log: log}
}

// SyncConversations reconciles one connection. A platform failure on the
// initial listing fails the whole call; a failure on an individual thread
// marks the report incomplete and is returned as the call's error after the
// remaining threads have been attempted, so partial progress is kept but
// never mistaken for success.
func (r *Reconciler) SyncConversations(ctx context.Context, conn connection.PlatformConnection) (Report, error) {
	var report Report

	threads, err := r.platform.ListConversations(ctx, conn)
	if err != nil {
		report.Incomplete = true
		return report, fmt.Errorf("list conversations: %w", err)
	}

	var firstErr error
	for _, thread := range threads {
		contact, ok := remoteContact(thread, conn.PlatformUserID)
		if !ok {
			continue
		}
		report.ConversationsSeen++

		history, err := r.platform.GetMessageHistory(ctx, conn, thread.ID)
		if err != nil {
			r.log.Errorf("sync connection %s: thread %s history: %v", conn.ID, thread.ID, err)
			report.Incomplete = true
			if firstErr == nil {
				firstErr = fmt.Errorf("thread %s history: %w", thread.ID, err)
			}
			continue
		}

		for _, remote := range history {
			direction := message.DirectionInbound
			if remote.FromID == conn.PlatformUserID {
				direction = message.DirectionOutbound
			}

			result, err := r.engine.Apply(ctx, conn, ingest.ApplyInput{
				ThreadExternalID:  contact.ID,
				ContactExternalID: contact.ID,
				ContactName:       contact.Name,
				Direction:         direction,
				Text:              remote.Text,
				ExternalMessageID: remote.ID,
				Timestamp:         remote.CreatedTime,
			})
			if err != nil {
				r.log.Errorf("sync connection %s: apply message %s: %v", conn.ID, remote.ID, err)
				report.Incomplete = true
				if firstErr == nil {
					firstErr = fmt.Errorf("apply message %s: %w", remote.ID, err)
				}
				continue
			}
			if result.Created {
				report.MessagesApplied++
			} else {
				report.MessagesSkipped++
			}
		}
	}

	return report, firstErr
}

// remoteContact picks the participant that is not the page itself.
func remoteContact(thread platform.RemoteThread, pageID string) (platform.RemoteParticipant, bool) {
	for _, p := range thread.Participants {
		if p.ID != pageID {
			return p, true
		}
	}
	return platform.RemoteParticipant{}, false
}
