package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sentinelvnc/sentinel/cli/internal/client"
	"github.com/sentinelvnc/sentinel/cli/pkg/output"
)

func newIncidentsCmd(a *app) *cobra.Command {
	var riskURL string

	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "Inspect incidents held by the risk engine",
	}
	cmd.PersistentFlags().StringVar(&riskURL, "url", "", "risk engine base URL (overrides riskengine_url)")

	newClient := func() *client.RiskEngineClient {
		base := a.cfg.RiskEngineURL
		if riskURL != "" {
			base = riskURL
		}
		return client.NewRiskEngineClient(base, a.cfg.APIKey, a.cfg.Timeout)
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := newClient().ListIncidents(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list incidents: %w", err)
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(incidents)
			}
			if len(incidents) == 0 {
				p.Info("No incidents found")
				return nil
			}
			t := output.NewTable("ID", "SESSION", "SCORE", "LEVEL", "ACTION", "EVENTS")
			for _, inc := range incidents {
				t.AddRow(inc.IncidentID, inc.SessionID, strconv.Itoa(inc.RiskScore), inc.RiskLevel,
					inc.RecommendedAction, strconv.Itoa(len(inc.Events)))
			}
			p.Table(t)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <incident-id>",
		Short: "Show one incident and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := newClient().GetIncident(cmd.Context(), args[0])
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("incident %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to get incident: %w", err)
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(inc)
			}
			p.Info("Incident:  %s", inc.IncidentID)
			p.Info("Session:   %s", inc.SessionID)
			p.Info("Score:     %d (%s)", inc.RiskScore, inc.RiskLevel)
			p.Info("Action:    %s", inc.RecommendedAction)
			if len(inc.ArtifactRefs) > 0 {
				p.Info("Artifacts: %v", inc.ArtifactRefs)
			}
			if len(inc.Events) > 0 {
				t := output.NewTable("EVENT", "TIMESTAMP", "DETECTOR", "TYPE", "CONFIDENCE")
				for _, ev := range inc.Events {
					t.AddRow(ev.EventID, ev.Timestamp, ev.Detector, ev.Type, strconv.FormatFloat(ev.Confidence, 'f', 2, 64))
				}
				p.Table(t)
			}
			return nil
		},
	}

	explain := &cobra.Command{
		Use:   "explain <incident-id>",
		Short: "Show which event types drove an incident's score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := newClient().Explain(cmd.Context(), args[0])
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("incident %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to explain incident: %w", err)
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(exp)
			}
			p.Info("Total score: %d", exp.TotalScore)
			t := output.NewTable("TYPE", "SCORE")
			for _, c := range exp.TopContributors {
				t.AddRow(c.Type, strconv.Itoa(c.Score))
			}
			p.Table(t)
			return nil
		},
	}

	cmd.AddCommand(list, get, explain)
	return cmd
}
