package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/decoding"
	"chatd/internal/httpapi"
	"chatd/internal/manager"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files
// and returns the directory path.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// stubBackend loads stubModels that stream the words of a fixed reply.
type stubBackend struct {
	reply string
	// hold, when non-nil, blocks every generation until closed.
	hold    chan struct{}
	started chan string

	mu      sync.Mutex
	prompts []string
	loads   int
}

func (b *stubBackend) Load(ctx context.Context, d catalog.Descriptor) (manager.Model, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	return &stubModel{b: b}, nil
}

func (b *stubBackend) lastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

type stubModel struct{ b *stubBackend }

func (m *stubModel) Generate(ctx context.Context, prompt string, p decoding.Preset, onFragment func(string) error) (manager.Result, error) {
	m.b.mu.Lock()
	m.b.prompts = append(m.b.prompts, prompt)
	m.b.mu.Unlock()
	if m.b.started != nil {
		m.b.started <- prompt
	}
	if m.b.hold != nil {
		select {
		case <-m.b.hold:
		case <-ctx.Done():
			return manager.Result{}, ctx.Err()
		}
	}
	var out strings.Builder
	for i, w := range strings.Fields(m.b.reply) {
		if i > 0 {
			w = " " + w
		}
		if err := onFragment(w); err != nil {
			return manager.Result{}, err
		}
		out.WriteString(w)
	}
	return manager.Result{Content: out.String(), FinishReason: "stop"}, nil
}

func (m *stubModel) Close() error { return nil }

// newServer wires config, manager, chat service and HTTP API over modelsDir.
func newServer(t *testing.T, modelsDir string, b *stubBackend, mutate func(*config.Config)) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg := config.Default()
	cfg.ModelsDir = modelsDir
	cfg.MaxWaitMS = 100
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	formatters, err := cfg.FormatterRegistry()
	if err != nil {
		t.Fatalf("formatters: %v", err)
	}
	log := zerolog.Nop()
	mgr := manager.New(manager.Config{
		Catalog:       cat,
		Backend:       b,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		Logger:        &log,
	})
	svc := chat.New(chat.Options{
		Manager:      mgr,
		Presets:      cfg.DecodingTable(),
		Formatters:   formatters,
		SystemPrompt: cfg.SystemPrompt,
		Logger:       &log,
	})
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close(context.Background())
	})
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	return do(t, req)
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json: %v body=%s", err, string(body))
	}
}
