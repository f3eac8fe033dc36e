package events

// Event names pushed to clients over the realtime channel.
const (
	EventNewMessage          = "new_message"
	EventConversationUpdated = "conversation_updated"
	EventSyncCompleted       = "sync_completed"
)

// Redis channel prefixes. Fan-out is scoped per organization: every event an
// organization's agents may see travels on that organization's channel and
// nowhere else.
const (
	ChannelPrefixOrganization = "channel:org:"
)

// OrganizationChannel returns the pub/sub channel for an organization id.
func OrganizationChannel(organizationID string) string {
	return ChannelPrefixOrganization + organizationID
}
