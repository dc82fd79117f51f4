package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinelvnc/sentinel/cli/pkg/output"
	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/forensics/pkg/bundle"
	"github.com/sentinelvnc/sentinel/forensics/pkg/collector"
	"github.com/sentinelvnc/sentinel/forensics/pkg/manifest"
	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

type forensicsFlags struct {
	dataRoot    string
	sourcesRoot string
}

func (f *forensicsFlags) layout(a *app) storage.Layout {
	dataRoot, sourcesRoot := a.cfg.Forensics.DataRoot, a.cfg.Forensics.SourcesRoot
	if f.dataRoot != "" {
		dataRoot = f.dataRoot
	}
	if f.sourcesRoot != "" {
		sourcesRoot = f.sourcesRoot
	}
	return storage.NewLayout(dataRoot, sourcesRoot)
}

func newForensicsCmd(a *app) *cobra.Command {
	f := &forensicsFlags{}
	cmd := &cobra.Command{
		Use:   "forensics",
		Short: "Capture, verify and export forensic evidence",
		Long:  "Work with evidence bundles directly on the forensics data root, without the orchestrator's HTTP API",
	}
	cmd.PersistentFlags().StringVar(&f.dataRoot, "data-root", "", "evidence root (overrides forensics.data_root)")
	cmd.PersistentFlags().StringVar(&f.sourcesRoot, "sources-root", "", "session sources root (overrides forensics.sources_root)")

	cmd.AddCommand(newForensicsRunCmd(a, f), newForensicsVerifyCmd(a, f), newForensicsExportCmd(a, f))
	return cmd
}

func newForensicsRunCmd(a *app, f *forensicsFlags) *cobra.Command {
	var incidentID, sessionID string
	var rawRefs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture evidence for an incident locally",
		Long: `Collect the session's artifacts into the data root, hash them and write
the manifest. Nothing is anchored, so the bundle stays UNANCHORED.

Refs use the form type/source[/ref], e.g. screenshot/visual/last_5.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := make([]models.ArtifactRef, 0, len(rawRefs))
			for _, raw := range rawRefs {
				ref, err := models.ParseArtifactRef(raw)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}
			if len(refs) == 0 {
				refs = models.DefaultRefs()
			}

			layout := f.layout(a)
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel("warn"), "text").Logger
			artifacts, root, err := collector.New(layout, logger).Collect(cmd.Context(), incidentID, sessionID, refs)
			if err != nil {
				return fmt.Errorf("collect evidence: %w", err)
			}

			m := manifest.Build(incidentID, sessionID, artifacts, root, time.Now())
			if err := manifest.NewStore(layout).Write(m); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(m)
			}
			p.Success("Captured %d artifacts for incident %s", m.ArtifactCount, m.IncidentID)
			p.Info("Merkle root: %s", m.MerkleRoot)
			p.Info("Manifest:    %s", layout.ManifestPath(incidentID))
			return nil
		},
	}
	cmd.Flags().StringVar(&incidentID, "incident", "", "incident id (required)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	cmd.Flags().StringArrayVar(&rawRefs, "ref", nil, "artifact ref type/source[/ref], repeatable (default: one of each type)")
	_ = cmd.MarkFlagRequired("incident")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newForensicsVerifyCmd(a *app, f *forensicsFlags) *cobra.Command {
	var incidentID string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash an incident's evidence and check it against the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := bundle.Verify(f.layout(a), incidentID)
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if p.Structured() {
				if err := p.Data(report); err != nil {
					return err
				}
			} else {
				p.Info("Artifacts:     %d", report.Artifacts)
				p.Info("Stored root:   %s", report.StoredRoot)
				p.Info("Computed root: %s", report.ComputedRoot)
				if len(report.Problems) > 0 {
					t := output.NewTable("PROBLEM", "FILE", "EXPECTED", "ACTUAL")
					for _, pr := range report.Problems {
						t.AddRow(string(pr.Kind), pr.Filename, pr.Expected, pr.Actual)
					}
					p.Table(t)
				}
			}

			if !report.OK() {
				return fmt.Errorf("incident %s failed verification with %d problem(s)", incidentID, len(report.Problems))
			}
			if !p.Structured() {
				p.Success("Evidence for %s is intact", incidentID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&incidentID, "incident", "", "incident id (required)")
	_ = cmd.MarkFlagRequired("incident")
	return cmd
}

func newForensicsExportCmd(a *app, f *forensicsFlags) *cobra.Command {
	var incidentID, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an incident's evidence bundle as .tar.zst",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = storage.SafeSegment(incidentID) + ".tar.zst"
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			files, err := bundle.Export(f.layout(a), incidentID, file)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return err
			}

			p := a.printer(cmd)
			if p.Structured() {
				return p.Data(map[string]interface{}{"incident_id": incidentID, "path": out, "files": files})
			}
			p.Success("Exported %d files to %s", len(files), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&incidentID, "incident", "", "incident id (required)")
	cmd.Flags().StringVar(&out, "out", "", "output path (default: <incident>.tar.zst)")
	_ = cmd.MarkFlagRequired("incident")
	return cmd
}
