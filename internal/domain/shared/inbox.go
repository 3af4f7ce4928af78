package shared

// InboxState is the processing state of a recorded external event.
// RECEIVED rows move once to a terminal state and are never reset.
type InboxState string

const (
	InboxReceived  InboxState = "RECEIVED"
	InboxProcessed InboxState = "PROCESSED"
	InboxIgnored   InboxState = "IGNORED"
	InboxFailed    InboxState = "FAILED"
)

// IsTerminal reports whether the row has finished processing
func (s InboxState) IsTerminal() bool {
	return s == InboxProcessed || s == InboxIgnored || s == InboxFailed
}
