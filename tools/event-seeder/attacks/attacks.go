// Package attacks generates synthetic detector events for exfiltration
// scenarios.
package attacks

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DetectorEvent is the wire shape accepted by the risk engine's
// POST /detector-events.
type DetectorEvent struct {
	EventID      string                 `json:"event_id"`
	SessionID    string                 `json:"session_id"`
	Timestamp    string                 `json:"timestamp"`
	Detector     string                 `json:"detector"`
	Type         string                 `json:"type"`
	Confidence   float64                `json:"confidence"`
	Details      map[string]interface{} `json:"details"`
	ArtifactRefs []string               `json:"artifact_refs"`
}

// Intensity scales how many events a pattern emits.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// ParseIntensity validates an -intensity value.
func ParseIntensity(s string) (Intensity, error) {
	switch i := Intensity(s); i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return i, nil
	}
	return "", fmt.Errorf("unknown intensity %q (want low, medium or high)", s)
}

// Config holds configuration for one pattern run.
type Config struct {
	SessionID string
	Intensity Intensity

	// Events are spaced Step apart, ending at Now.
	Now  time.Time
	Step time.Duration

	// Pattern-specific overrides, e.g. "ops" or "queries".
	Params map[string]interface{}
}

// Pattern generates the detector events one attack produces.
type Pattern interface {
	// Name is the registry key, e.g. "clipboard_exfil".
	Name() string

	Description() string

	Generate(cfg *Config) ([]DetectorEvent, error)

	// DefaultParams returns the parameters used at high intensity.
	DefaultParams() map[string]interface{}
}

// Registry holds all registered attack patterns
var Registry = make(map[string]Pattern)

// Register adds an attack pattern to the registry
func Register(pattern Pattern) {
	Registry[pattern.Name()] = pattern
}

// Get retrieves an attack pattern by name
func Get(name string) (Pattern, bool) {
	p, ok := Registry[name]
	return p, ok
}

// List returns all registered pattern names in sorted order.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetIntParam extracts an integer parameter, parsing from string if necessary
func GetIntParam(cfg *Config, key string, defaultValue int) int {
	if cfg.Params == nil {
		return defaultValue
	}

	switch v := cfg.Params[key].(type) {
	case int:
		return v
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// scaled picks a count for cfg's intensity unless key is overridden.
func scaled(cfg *Config, key string, low, medium, high int) int {
	def := high
	switch cfg.Intensity {
	case IntensityLow:
		def = low
	case IntensityMedium:
		def = medium
	}
	return GetIntParam(cfg, key, def)
}

// builder stamps events for one session at evenly spaced timestamps.
type builder struct {
	cfg    *Config
	events []DetectorEvent
}

func newBuilder(cfg *Config, capacity int) *builder {
	return &builder{cfg: cfg, events: make([]DetectorEvent, 0, capacity)}
}

func (b *builder) add(detector, typ string, confidence float64, details map[string]interface{}, refs ...string) {
	if details == nil {
		details = map[string]interface{}{}
	}
	if refs == nil {
		refs = []string{}
	}
	b.events = append(b.events, DetectorEvent{
		EventID:      uuid.NewString(),
		SessionID:    b.cfg.SessionID,
		Detector:     detector,
		Type:         typ,
		Confidence:   confidence,
		Details:      details,
		ArtifactRefs: refs,
	})
}

// done assigns timestamps so the last event lands on cfg.Now.
func (b *builder) done() []DetectorEvent {
	n := len(b.events)
	for i := range b.events {
		ts := b.cfg.Now.Add(-time.Duration(n-1-i) * b.cfg.Step)
		b.events[i].Timestamp = ts.UTC().Format(time.RFC3339Nano)
	}
	return b.events
}
