package scoring

// DefaultWeights mirrors riskengine/risk_weights.yaml. LoadWeights returns it
// when correlation.weights_file is set to "".
func DefaultWeights() Weights {
	return Weights{
		"clipboard_spike_candidate":  40,
		"file_transfer_candidate":    40,
		"screenshot_burst_candidate": 30,
		"dns_tunnel_suspected":       45,
		"icmp_tunnel_suspected":      45,
		"file_transfer_metadata":     30,
		"suspicious_command_pattern": 35,
		"network_activity":           5,
		"app_activity":               5,
		"visual_activity":            5,
		"server_response_activity":   5,
	}
}
