// Package bundle checks a persisted capture offline and packages it for hand-off.
package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sentinelvnc/sentinel/forensics/pkg/integrity"
	"github.com/sentinelvnc/sentinel/forensics/pkg/manifest"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

// ProblemKind classifies a verification failure.
type ProblemKind string

const (
	ProblemMissing      ProblemKind = "missing"
	ProblemHashMismatch ProblemKind = "hash_mismatch"
	ProblemSizeMismatch ProblemKind = "size_mismatch"
	ProblemRootMismatch ProblemKind = "root_mismatch"
)

// Problem is one discrepancy between the manifest and the files on disk.
type Problem struct {
	Kind     ProblemKind `json:"kind"`
	Filename string      `json:"filename,omitempty"`
	Expected string      `json:"expected,omitempty"`
	Actual   string      `json:"actual,omitempty"`
}

// Report is the result of verifying one incident's bundle.
type Report struct {
	IncidentID   string    `json:"incident_id"`
	Artifacts    int       `json:"artifacts"`
	StoredRoot   string    `json:"stored_root"`
	ComputedRoot string    `json:"computed_root"`
	Problems     []Problem `json:"problems"`
}

// OK reports whether the bundle verified cleanly.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Verify rehashes every artifact named in the manifest, recomputes the
// Merkle root, and compares it with the manifest and the root sidecar.
// A missing manifest returns manifest.ErrManifestNotFound; every other
// discrepancy is reported in the Report.
func Verify(layout storage.Layout, incidentID string) (*Report, error) {
	store := manifest.NewStore(layout)
	m, err := store.Read(incidentID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		IncidentID: incidentID,
		Artifacts:  len(m.Artifacts),
		StoredRoot: m.MerkleRoot,
		Problems:   []Problem{},
	}

	rawDir := layout.RawPath(incidentID)
	hashes := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		path := filepath.Join(rawDir, a.Filename)
		st, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			report.Problems = append(report.Problems, Problem{Kind: ProblemMissing, Filename: a.Filename})
			hashes = append(hashes, a.SHA256)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		sum, err := integrity.HashFile(path)
		if err != nil {
			return nil, err
		}
		if sum != a.SHA256 {
			report.Problems = append(report.Problems, Problem{
				Kind: ProblemHashMismatch, Filename: a.Filename, Expected: a.SHA256, Actual: sum,
			})
		}
		if st.Size() != a.SizeBytes {
			report.Problems = append(report.Problems, Problem{
				Kind:     ProblemSizeMismatch,
				Filename: a.Filename,
				Expected: fmt.Sprint(a.SizeBytes),
				Actual:   fmt.Sprint(st.Size()),
			})
		}
		hashes = append(hashes, sum)
	}

	report.ComputedRoot = integrity.MerkleRoot(hashes)
	if report.ComputedRoot != m.MerkleRoot {
		report.Problems = append(report.Problems, Problem{
			Kind: ProblemRootMismatch, Filename: manifest.ManifestFile, Expected: m.MerkleRoot, Actual: report.ComputedRoot,
		})
	}

	sidecar, err := store.ReadRoot(incidentID)
	switch {
	case errors.Is(err, manifest.ErrManifestNotFound):
		report.Problems = append(report.Problems, Problem{Kind: ProblemMissing, Filename: manifest.MerkleRootFile})
	case err != nil:
		return nil, err
	case sidecar != m.MerkleRoot:
		report.Problems = append(report.Problems, Problem{
			Kind: ProblemRootMismatch, Filename: manifest.MerkleRootFile, Expected: m.MerkleRoot, Actual: sidecar,
		})
	}
	return report, nil
}
