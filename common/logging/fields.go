package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldEventID    = "event_id"
	FieldSessionID  = "session_id"
	FieldIncidentID = "incident_id"
	FieldMerkleRoot = "merkle_root"
	FieldTxID       = "tx_id"
	FieldCode       = "code"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Error returns a slog attribute for an error. A nil error logs as "<nil>".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "<nil>")
	}
	return slog.String(FieldError, err.Error())
}

// EventID returns a slog attribute for a detector event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// SessionID returns a slog attribute for a remote-desktop session ID.
func SessionID(id string) slog.Attr {
	return slog.String(FieldSessionID, id)
}

// IncidentID returns a slog attribute for an incident ID.
func IncidentID(id string) slog.Attr {
	return slog.String(FieldIncidentID, id)
}

// MerkleRoot returns a slog attribute for a Merkle root.
func MerkleRoot(root string) slog.Attr {
	return slog.String(FieldMerkleRoot, root)
}

// TxID returns a slog attribute for a ledger transaction ID.
func TxID(id string) slog.Attr {
	return slog.String(FieldTxID, id)
}

// Code returns a slog attribute for a stable log code such as "BC100".
func Code(code string) slog.Attr {
	return slog.String(FieldCode, code)
}
