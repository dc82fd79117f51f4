package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelvnc/sentinel/common/logging"
	"github.com/sentinelvnc/sentinel/common/messaging"
	"github.com/sentinelvnc/sentinel/forensics/pkg/anchor"
	"github.com/sentinelvnc/sentinel/forensics/pkg/collector"
	"github.com/sentinelvnc/sentinel/forensics/pkg/integrity"
	"github.com/sentinelvnc/sentinel/forensics/pkg/manifest"
	"github.com/sentinelvnc/sentinel/forensics/pkg/models"
	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeGateway mimics the ledger gateway and counts every call.
type fakeGateway struct {
	mu      sync.Mutex
	roots   map[string]string
	anchors atomic.Int32
	verifys atomic.Int32
	down    atomic.Bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{roots: make(map[string]string)}
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	var body struct {
		IncidentID string `json:"incident_id"`
		MerkleRoot string `json:"merkle_root"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	g.mu.Lock()
	defer g.mu.Unlock()
	switch r.URL.Path {
	case "/api/anchor":
		g.anchors.Add(1)
		g.roots[body.IncidentID] = body.MerkleRoot
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "anchored", "tx_id": "tx-" + body.IncidentID})
	case "/api/verify":
		g.verifys.Add(1)
		root, ok := g.roots[body.IncidentID]
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": ok && root == body.MerkleRoot})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (g *fakeGateway) calls() int32 {
	return g.anchors.Load() + g.verifys.Load()
}

type fixture struct {
	svc       *Service
	layout    storage.Layout
	manifests *manifest.Store
	gateway   *fakeGateway
}

func newFixture(t *testing.T, ledgerURL string) *fixture {
	t.Helper()
	logger := logging.Discard().Logger
	layout := storage.NewLayout(t.TempDir(), t.TempDir())
	manifests := manifest.NewStore(layout)

	cfg := anchor.Config{Timeout: time.Second}
	gw := newFakeGateway()
	if ledgerURL == "" {
		srv := httptest.NewServer(gw)
		t.Cleanup(srv.Close)
		ledgerURL = srv.URL
	}
	cfg.AnchorURL = ledgerURL + "/api/anchor"
	cfg.VerifyURL = ledgerURL + "/api/verify"

	svc := NewService(
		collector.New(layout, logger),
		manifests,
		manifest.Build,
		anchor.NewClient(cfg, logger),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logger),
	)
	return &fixture{svc: svc, layout: layout, manifests: manifests, gateway: gw}
}

func TestStartForensicsDefaultRefsAndAnchor(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	resp, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, "inc-1", resp.IncidentID)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 3, resp.ArtifactCount)

	m, err := f.manifests.Read("inc-1")
	require.NoError(t, err)
	assert.Equal(t, resp.MerkleRoot, m.MerkleRoot)
	assert.Equal(t, "2025-06-01T12:00:00Z", m.Timestamp)

	hashes := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		assert.True(t, a.SourceMissing)
		hashes = append(hashes, a.SHA256)
		got, err := integrity.HashFile(filepath.Join(f.layout.RawPath("inc-1"), a.Filename))
		require.NoError(t, err)
		assert.Equal(t, a.SHA256, got)
	}
	assert.Equal(t, integrity.MerkleRoot(hashes), m.MerkleRoot)

	tx, attempted, err := f.manifests.ReadAnchorTx("inc-1")
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Equal(t, "tx-inc-1", tx)
	assert.Equal(t, int32(1), f.gateway.anchors.Load())
}

func TestStartForensicsUnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFixture(t, url)
	resp, err := f.svc.StartForensics(context.Background(), models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ArtifactCount)

	tx, attempted, err := f.manifests.ReadAnchorTx("inc-1")
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Empty(t, tx)
	assert.FileExists(t, filepath.Join(f.layout.ManifestPath("inc-1"), manifest.AnchorTxFile))

	status, err := f.svc.Status(context.Background(), "inc-1")
	require.NoError(t, err)
	assert.Equal(t, string(anchor.StateAnchorFailed), status.AnchorState)
}

func TestStartForensicsRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.StartForensics(context.Background(), models.StartRequest{SessionID: "sess-1"})
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	assert.Equal(t, int32(0), f.gateway.calls())
}

func TestStartForensicsCollectsSources(t *testing.T) {
	f := newFixture(t, "")
	log := f.layout.ClipboardLog("sess-1")
	require.NoError(t, os.MkdirAll(filepath.Dir(log), 0o755))
	require.NoError(t, os.WriteFile(log, []byte("secret-1\nsecret-2\n"), 0o644))

	resp, err := f.svc.StartForensics(context.Background(), models.StartRequest{
		IncidentID:   "inc-1",
		SessionID:    "sess-1",
		ArtifactRefs: []models.ArtifactRef{{Type: models.ArtifactClipboard, Source: "app_detector", Ref: "last_1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ArtifactCount)
	assert.Equal(t, integrity.HashBytes([]byte("secret-2\n")), resp.MerkleRoot)
}

func TestAnchorAndVerify(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	start, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)

	resp, err := f.svc.AnchorAndVerify(ctx, models.AnchorRequest{IncidentID: "inc-1", MerkleRoot: start.MerkleRoot})
	require.NoError(t, err)
	assert.Equal(t, &models.AnchorResponse{Status: "verified", IncidentID: "inc-1", MerkleRoot: start.MerkleRoot}, resp)

	// Already anchored during capture, so only the verify call is new.
	assert.Equal(t, int32(1), f.gateway.anchors.Load())
	assert.Equal(t, int32(1), f.gateway.verifys.Load())

	status, err := f.svc.Status(ctx, "inc-1")
	require.NoError(t, err)
	assert.Equal(t, string(anchor.StateAnchored), status.AnchorState)
	assert.Equal(t, "tx-inc-1", status.TxID)
}

func TestAnchorAndVerifyRootMismatchMakesNoCall(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)
	before := f.gateway.calls()

	_, err = f.svc.AnchorAndVerify(ctx, models.AnchorRequest{IncidentID: "inc-1", MerkleRoot: "deadbeef"})
	assert.ErrorIs(t, err, ErrRootMismatch)
	assert.Equal(t, before, f.gateway.calls())
}

func TestAnchorAndVerifySidecarRootTampered(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	start, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)
	rootFile := filepath.Join(f.layout.ManifestPath("inc-1"), manifest.MerkleRootFile)
	require.NoError(t, os.WriteFile(rootFile, []byte("tampered"), 0o644))
	before := f.gateway.calls()

	_, err = f.svc.AnchorAndVerify(ctx, models.AnchorRequest{IncidentID: "inc-1", MerkleRoot: start.MerkleRoot})
	assert.ErrorIs(t, err, ErrRootMismatch)
	assert.Equal(t, before, f.gateway.calls())
}

func TestAnchorAndVerifyMissingManifest(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.AnchorAndVerify(context.Background(), models.AnchorRequest{IncidentID: "nope", MerkleRoot: "abc"})
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
	assert.Equal(t, int32(0), f.gateway.calls())
}

func TestAnchorAndVerifyRetriesAnchorWhenSidecarEmpty(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	f.gateway.down.Store(true)
	start, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)
	tx, _, err := f.manifests.ReadAnchorTx("inc-1")
	require.NoError(t, err)
	require.Empty(t, tx)

	f.gateway.down.Store(false)
	resp, err := f.svc.AnchorAndVerify(ctx, models.AnchorRequest{IncidentID: "inc-1", MerkleRoot: start.MerkleRoot})
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Status)

	tx, _, err = f.manifests.ReadAnchorTx("inc-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-inc-1", tx)
	assert.Equal(t, int32(1), f.gateway.anchors.Load())
}

func TestAnchorAndVerifyLedgerDisagrees(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	start, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)

	f.gateway.mu.Lock()
	f.gateway.roots["inc-1"] = "something-else"
	f.gateway.mu.Unlock()

	_, err = f.svc.AnchorAndVerify(ctx, models.AnchorRequest{IncidentID: "inc-1", MerkleRoot: start.MerkleRoot})
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestStatusUnanchored(t *testing.T) {
	f := newFixture(t, "")
	m := manifest.Build("inc-9", "sess-1", nil, "", fixedNow)
	require.NoError(t, f.manifests.Write(m))

	status, err := f.svc.Status(context.Background(), "inc-9")
	require.NoError(t, err)
	assert.Equal(t, string(anchor.StateUnanchored), status.AnchorState)
	assert.Equal(t, m, status.Manifest)

	_, err = f.svc.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
}

func TestConcurrentCapturesOfDifferentIncidents(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"inc-a", "inc-b", "inc-c", "inc-a"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.StartForensics(ctx, models.StartRequest{IncidentID: id, SessionID: "sess-1"})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"inc-a", "inc-b", "inc-c"} {
		_, err := f.manifests.Read(id)
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, f.svc.locks.len())
}

func TestCapturesShareLockPerIncidentDirectory(t *testing.T) {
	f := newFixture(t, "")
	require.Equal(t, storage.SafeSegment("inc/1"), storage.SafeSegment("inc_1"))

	unlock := f.svc.locks.Lock(storage.SafeSegment("inc_1"))
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.StartForensics(context.Background(), models.StartRequest{IncidentID: "inc/1", SessionID: "sess-1"})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("capture ran while the incident directory was locked")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	assert.NoError(t, <-done)
	assert.Equal(t, 0, f.svc.locks.len())
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("a")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	// A different key is not blocked.
	k.Lock("b")()

	unlock()
	<-acquired
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return p.PublishJSON(ctx, subject, data)
}

func (p *recordingPublisher) PublishJSON(_ context.Context, subject string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, v)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestStartForensicsNotifies(t *testing.T) {
	f := newFixture(t, "")
	pub := &recordingPublisher{}
	WithNotifier(pub)(f.svc)

	resp, err := f.svc.StartForensics(context.Background(), models.StartRequest{IncidentID: "inc-1", SessionID: "sess-1"})
	require.NoError(t, err)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, messaging.SubjectForensicsCaptured, pub.subjects[0])
	assert.Equal(t, resp, pub.payloads[0])
}
