package messaging

// Subjects follow the pattern {domain}.{resource}.{action}.
const (
	// SubjectIncidentsCreated carries every Incident the risk engine creates.
	SubjectIncidentsCreated = "sentinel.incidents.created"

	// SubjectForensicsCaptured is published after a forensic bundle is written.
	SubjectForensicsCaptured = "sentinel.forensics.captured"
)

// Queue groups for load-balanced consumers.
const (
	QueueRespondWorkers = "respond-workers"
)
