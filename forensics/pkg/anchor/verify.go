package anchor

import (
	"encoding/json"
	"strings"
)

// VerifyKind names which field of a verify reply decided the outcome.
type VerifyKind int

const (
	VerifyUnrecognized VerifyKind = iota
	VerifyValidField
	VerifyStatusField
)

// VerifyOutcome is a normalized verify reply.
type VerifyOutcome struct {
	Kind     VerifyKind
	Verified bool
}

var verifiedStatuses = map[string]bool{
	"valid":    true,
	"ok":       true,
	"anchored": true,
	"verified": true,
}

// normalizeVerify accepts {"valid": bool} or {"status": string}. A boolean
// "valid" field wins over "status"; anything else is unrecognized and unverified.
func normalizeVerify(body []byte) VerifyOutcome {
	var reply map[string]json.RawMessage
	if err := json.Unmarshal(body, &reply); err != nil {
		return VerifyOutcome{Kind: VerifyUnrecognized}
	}

	if raw, ok := reply["valid"]; ok {
		var valid bool
		if err := json.Unmarshal(raw, &valid); err == nil {
			return VerifyOutcome{Kind: VerifyValidField, Verified: valid}
		}
	}

	if raw, ok := reply["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err == nil {
			return VerifyOutcome{
				Kind:     VerifyStatusField,
				Verified: verifiedStatuses[strings.ToLower(strings.TrimSpace(status))],
			}
		}
	}

	return VerifyOutcome{Kind: VerifyUnrecognized}
}
