// Command event-seeder replays synthetic exfiltration scenarios against the
// risk engine so the detection and response flow can be demonstrated
// without live VNC traffic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/tools/event-seeder/attacks"
)

var (
	riskURL   = flag.String("url", "http://localhost:9000/detector-events", "risk engine detector-events endpoint")
	apiKey    = flag.String("api-key", "", "X-API-Key for the risk engine")
	patterns  = flag.String("patterns", "clipboard_exfil", "comma-separated patterns, or \"all\"")
	intensity = flag.String("intensity", "high", "low, medium or high")
	sessionID = flag.String("session", "", "session id (default: a fresh UUID per pattern)")
	interval  = flag.Duration("interval", 50*time.Millisecond, "pause between events")
	step      = flag.Duration("step", time.Second, "timestamp spacing between generated events")
	list      = flag.Bool("list", false, "list available patterns and exit")
	dryRun    = flag.Bool("dry-run", false, "print events as JSON lines instead of sending")
)

func main() {
	flag.Parse()

	logger := logging.NewWithWriter(os.Stderr, logging.ParseLevel("info"), "text").
		With(logging.Service("event-seeder"))

	if *list {
		for _, name := range attacks.List() {
			p, _ := attacks.Get(name)
			fmt.Printf("%-18s %s\n", name, p.Description())
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger.Logger); err != nil {
		logger.Error("seeding failed", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	level, err := attacks.ParseIntensity(*intensity)
	if err != nil {
		return err
	}
	names, err := selectPatterns(*patterns)
	if err != nil {
		return err
	}

	s := newSender(*riskURL, *apiKey, logger)
	for _, name := range names {
		p, _ := attacks.Get(name)
		sid := *sessionID
		if sid == "" {
			sid = uuid.NewString()
		}

		events, err := p.Generate(&attacks.Config{
			SessionID: sid,
			Intensity: level,
			Now:       time.Now().UTC(),
			Step:      *step,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		log := logger.With(slog.String("pattern", name), logging.SessionID(sid))
		log.Info("replaying pattern", slog.Int("events", len(events)))

		if err := replay(ctx, s, log, events); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func replay(ctx context.Context, s *sender, log *slog.Logger, events []attacks.DetectorEvent) error {
	for i, ev := range events {
		if *dryRun {
			if err := printJSON(ev); err != nil {
				return err
			}
			continue
		}

		resp, err := s.send(ctx, ev)
		if err != nil {
			return err
		}
		if resp.IncidentCreated && resp.Incident != nil {
			log.Info("incident created",
				logging.IncidentID(resp.Incident.IncidentID),
				slog.Int("risk_score", resp.Incident.RiskScore),
				slog.String("risk_level", resp.Incident.RiskLevel),
				slog.String("action", resp.Incident.RecommendedAction))
		}

		if i < len(events)-1 && *interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(*interval):
			}
		}
	}
	return nil
}

// selectPatterns resolves the -patterns flag against the registry.
func selectPatterns(list string) ([]string, error) {
	if strings.TrimSpace(list) == "all" {
		return attacks.List(), nil
	}
	var names []string
	for _, n := range strings.Split(list, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := attacks.Get(n); !ok {
			return nil, fmt.Errorf("unknown pattern %q (available: %s)", n, strings.Join(attacks.List(), ", "))
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no patterns selected")
	}
	return names, nil
}

func printJSON(ev attacks.DetectorEvent) error {
	return json.NewEncoder(os.Stdout).Encode(ev)
}
