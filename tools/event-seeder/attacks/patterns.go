package attacks

import (
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"
)

func init() {
	Register(&ClipboardExfil{})
	Register(&FileTransfer{})
	Register(&DNSTunnel{})
	Register(&ScreenshotBurst{})
}

// ClipboardExfil copies large blocks of text out through the clipboard
// channel, which the app detector flags as a clipboard spike.
type ClipboardExfil struct{}

func (a *ClipboardExfil) Name() string { return "clipboard_exfil" }

func (a *ClipboardExfil) Description() string {
	return "Clipboard exfiltration: repeated large client-to-server clipboard transfers"
}

func (a *ClipboardExfil) DefaultParams() map[string]interface{} {
	return map[string]interface{}{"ops": 15, "bytes": 3000}
}

func (a *ClipboardExfil) Generate(cfg *Config) ([]DetectorEvent, error) {
	ops := scaled(cfg, "ops", 5, 10, 15)
	size := GetIntParam(cfg, "bytes", 3000)
	if ops <= 0 {
		return nil, fmt.Errorf("ops must be positive, got %d", ops)
	}

	b := newBuilder(cfg, ops+1)
	for i := 0; i < ops; i++ {
		b.add("app", "app_activity", 0.3, map[string]interface{}{
			"direction": "client_to_server",
			"length":    size,
		})
	}
	b.add("app", "clipboard_spike_candidate", confidence(0.85, 0.1), map[string]interface{}{
		"operations":  ops,
		"total_bytes": ops * size,
		"sample":      gofakeit.Sentence(8),
	}, "clipboard/app_detector/last_20")
	return b.done(), nil
}

// FileTransfer pushes a few large files over the network stream.
type FileTransfer struct{}

func (a *FileTransfer) Name() string { return "file_transfer" }

func (a *FileTransfer) Description() string {
	return "File transfer exfiltration: large outbound transfers flagged by the network detector"
}

func (a *FileTransfer) DefaultParams() map[string]interface{} {
	return map[string]interface{}{"files": 3}
}

func (a *FileTransfer) Generate(cfg *Config) ([]DetectorEvent, error) {
	files := scaled(cfg, "files", 1, 2, 3)
	if files <= 0 {
		return nil, fmt.Errorf("files must be positive, got %d", files)
	}

	b := newBuilder(cfg, files*2)
	for i := 0; i < files; i++ {
		size := 50000 + 25000*i
		name := gofakeit.Word() + "." + gofakeit.FileExtension()
		b.add("network", "file_transfer_metadata", 0.6, map[string]interface{}{
			"filename":  name,
			"bytes":     size,
			"dest_ip":   gofakeit.IPv4Address(),
			"dest_port": 443,
		})
		b.add("network", "file_transfer_candidate", confidence(0.8, 0.15), map[string]interface{}{
			"filename": name,
			"bytes":    size,
		}, "network_meta/network_detector/last_pcap")
	}
	return b.done(), nil
}

// DNSTunnel sends many small DNS-shaped packets to a single domain.
type DNSTunnel struct{}

func (a *DNSTunnel) Name() string { return "dns_tunnel" }

func (a *DNSTunnel) Description() string {
	return "DNS tunnelling: bursts of small encoded queries to one domain"
}

func (a *DNSTunnel) DefaultParams() map[string]interface{} {
	return map[string]interface{}{"queries": 50, "batch": 10}
}

func (a *DNSTunnel) Generate(cfg *Config) ([]DetectorEvent, error) {
	queries := scaled(cfg, "queries", 20, 30, 50)
	batch := GetIntParam(cfg, "batch", 10)
	if queries <= 0 || batch <= 0 {
		return nil, fmt.Errorf("queries and batch must be positive")
	}

	domain := gofakeit.DomainName()
	b := newBuilder(cfg, queries/batch+1)
	for sent := 0; sent < queries; sent += batch {
		n := batch
		if queries-sent < n {
			n = queries - sent
		}
		b.add("network", "network_activity", 0.2, map[string]interface{}{
			"queries":  n,
			"domain":   domain,
			"avg_size": 60 + rand.Intn(60),
		})
	}
	b.add("network", "dns_tunnel_suspected", confidence(0.8, 0.15), map[string]interface{}{
		"domain":        domain,
		"query_count":   queries,
		"sample_label":  gofakeit.LetterN(32) + "." + domain,
		"entropy_score": 3.5 + rand.Float64(),
	}, "network_meta/network_detector/last_pcap")
	return b.done(), nil
}

// ScreenshotBurst grabs the framebuffer in rapid succession.
type ScreenshotBurst struct{}

func (a *ScreenshotBurst) Name() string { return "screenshot_burst" }

func (a *ScreenshotBurst) Description() string {
	return "Screenshot burst: rapid full-frame captures flagged by the visual detector"
}

func (a *ScreenshotBurst) DefaultParams() map[string]interface{} {
	return map[string]interface{}{"captures": 20}
}

func (a *ScreenshotBurst) Generate(cfg *Config) ([]DetectorEvent, error) {
	captures := scaled(cfg, "captures", 5, 10, 20)
	if captures <= 0 {
		return nil, fmt.Errorf("captures must be positive, got %d", captures)
	}

	b := newBuilder(cfg, captures/5+1)
	for i := 0; i < captures; i += 5 {
		b.add("visual", "visual_activity", 0.25, map[string]interface{}{
			"frames": min(5, captures-i),
		})
	}
	b.add("visual", "screenshot_burst_candidate", confidence(0.75, 0.2), map[string]interface{}{
		"captures":   captures,
		"resolution": fmt.Sprintf("%dx%d", 1920, 1080),
		"window":     gofakeit.AppName(),
	}, "screenshot/visual_detector/last_5")
	return b.done(), nil
}

// confidence returns a value in [base, base+spread], capped at 1.
func confidence(base, spread float64) float64 {
	c := base + rand.Float64()*spread
	if c > 1 {
		c = 1
	}
	return float64(int(c*100)) / 100
}
