package websocket

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"snorq/internal/events"
	"snorq/internal/repository"
)

// ChannelAuthorizer decides whether a user may join a channel. Organization
// channels require membership; everything else is denied.
type ChannelAuthorizer struct {
	orgRepo repository.OrganizationRepository
}

func NewChannelAuthorizer(orgRepo repository.OrganizationRepository) *ChannelAuthorizer {
	return &ChannelAuthorizer{orgRepo: orgRepo}
}

// CanSubscribe checks if a user is authorized to join a channel. A malformed
// channel or user id is a plain deny, not an error.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID string, channel string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	if strings.HasPrefix(channel, events.ChannelPrefixOrganization) {
		orgIDStr := strings.TrimPrefix(channel, events.ChannelPrefixOrganization)
		orgID, err := uuid.Parse(orgIDStr)
		if err != nil {
			return false, nil
		}
		return a.orgRepo.IsMember(ctx, orgID, userUUID)
	}

	// Default deny
	return false, nil
}
