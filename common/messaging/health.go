package messaging

// BrokerHealth is the broker section of a /health response.
type BrokerHealth struct {
	Connected bool   `json:"connected"`
	RTTMillis int64  `json:"rtt_ms"`
	Error     string `json:"error,omitempty"`
}

// CheckClientHealth reports whether client is connected and how long a
// round trip to the broker takes.
func CheckClientHealth(client Client) BrokerHealth {
	if client == nil {
		return BrokerHealth{Error: "client is nil"}
	}
	if !client.IsConnected() {
		return BrokerHealth{Error: "not connected to message broker"}
	}

	rtt, err := client.RTT()
	if err != nil {
		return BrokerHealth{Connected: true, Error: err.Error()}
	}
	return BrokerHealth{Connected: true, RTTMillis: rtt.Milliseconds()}
}
