package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"chatd/internal/config"
	"chatd/pkg/types"
)

func TestE2E_SelectChatStatus(t *testing.T) {
	dir := createTempModelsDir(t, "Qwen2.5-3B.gguf", "TinyLlama-1.1B.gguf")
	b := &stubBackend{reply: "Paris is the capital"}
	srv, _ := newServer(t, dir, b, nil)

	resp, body := httpGet(t, srv.URL+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models status=%d body=%s", resp.StatusCode, body)
	}
	var models types.ModelsResponse
	decode(t, body, &models)
	if len(models.Available) != 2 || models.Current != "" {
		t.Fatalf("unexpected /models: %+v", models)
	}

	// No active model yet.
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz expected 503, got %d", resp.StatusCode)
	}
	resp, body = httpPostJSON(t, srv.URL+"/chat", types.ChatRequest{Text: "hi"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("/chat without active model: status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = httpPostJSON(t, srv.URL+"/models/select", types.SelectRequest{Name: "qwen2.5-3b"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models/select status=%d body=%s", resp.StatusCode, body)
	}
	var sel types.SelectResponse
	decode(t, body, &sel)
	if sel.Name != "Qwen2.5-3B" {
		t.Fatalf("select canonical name = %q", sel.Name)
	}
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz expected 200, got %d", resp.StatusCode)
	}

	resp, body = httpPostJSON(t, srv.URL+"/chat", types.ChatRequest{Text: "What is the capital of France?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/chat status=%d body=%s", resp.StatusCode, body)
	}
	var reply types.ChatResponse
	decode(t, body, &reply)
	if reply.Text != "Paris is the capital" || reply.Model != "Qwen2.5-3B" || reply.SessionID == "" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if p := b.lastPrompt(); !strings.Contains(p, "<|im_start|>user\nWhat is the capital of France?\n<|im_end|>") {
		t.Fatalf("prompt not rendered as ChatML: %q", p)
	}

	// Second turn in the same session carries the first exchange.
	resp, body = httpPostJSON(t, srv.URL+"/chat", types.ChatRequest{Text: "And Spain?", SessionID: reply.SessionID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/chat session status=%d body=%s", resp.StatusCode, body)
	}
	if p := b.lastPrompt(); !strings.Contains(p, "Paris is the capital") || !strings.Contains(p, "And Spain?") {
		t.Fatalf("session history missing from prompt: %q", p)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d body=%s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	decode(t, body, &st)
	if st.Active != "Qwen2.5-3B" || len(st.Models) != 1 || st.Sessions != 1 || st.LoadsTotal != 1 {
		t.Fatalf("unexpected status: %+v", st)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+reply.SessionID, nil)
	resp, _ = do(t, req)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE session status=%d", resp.StatusCode)
	}
}

func TestE2E_ExplicitModelAndUnload(t *testing.T) {
	dir := createTempModelsDir(t, "Qwen2.5-3B.gguf", "TinyLlama-1.1B.gguf")
	b := &stubBackend{reply: "ok"}
	srv, mgr := newServer(t, dir, b, nil)

	resp, body := httpPostJSON(t, srv.URL+"/models/select", types.SelectRequest{Name: "Qwen2.5-3B"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status=%d body=%s", resp.StatusCode, body)
	}
	resp, body = httpPostJSON(t, srv.URL+"/chat", types.ChatRequest{Model: "TinyLlama-1.1B", Text: "hi"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status=%d body=%s", resp.StatusCode, body)
	}
	if p := b.lastPrompt(); !strings.Contains(p, "### Input:\nhi") {
		t.Fatalf("prompt not rendered as Alpaca: %q", p)
	}
	if !mgr.IsLoaded("TinyLlama-1.1B") {
		t.Fatalf("TinyLlama should be loaded on demand")
	}

	// The active model is protected.
	resp, _ = httpPostJSON(t, srv.URL+"/models/unload", types.SelectRequest{Name: "Qwen2.5-3B"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unload active expected 409, got %d", resp.StatusCode)
	}
	resp, body = httpPostJSON(t, srv.URL+"/models/unload", types.SelectRequest{Name: "TinyLlama-1.1B"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unload status=%d body=%s", resp.StatusCode, body)
	}
	if mgr.IsLoaded("TinyLlama-1.1B") {
		t.Fatalf("TinyLlama still loaded after unload")
	}
	resp, _ = httpPostJSON(t, srv.URL+"/models/unload", types.SelectRequest{Name: "missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unload unknown expected 404, got %d", resp.StatusCode)
	}
}

func TestE2E_StreamNDJSON(t *testing.T) {
	dir := createTempModelsDir(t, "Phi-3-mini.gguf")
	b := &stubBackend{reply: "one two three"}
	srv, _ := newServer(t, dir, b, func(c *config.Config) { c.DefaultModel = "Phi-3-mini" })

	resp, _ := httpPostJSON(t, srv.URL+"/models/select", types.SelectRequest{Name: "Phi-3-mini"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status=%d", resp.StatusCode)
	}
	resp, body := httpPostJSON(t, srv.URL+"/chat/stream", types.ChatRequest{Text: "count"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream status=%d body=%s", resp.StatusCode, body)
	}
	var tokens []string
	var last types.StreamChunk
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var c types.StreamChunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		if c.Token != "" {
			tokens = append(tokens, c.Token)
		}
		last = c
	}
	if strings.Join(tokens, "") != "one two three" {
		t.Fatalf("tokens = %q", tokens)
	}
	if !last.Done || last.SessionID == "" {
		t.Fatalf("final chunk = %+v", last)
	}
}

func TestE2E_Backpressure429(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	b := &stubBackend{reply: "x", hold: make(chan struct{}), started: make(chan string, 4)}
	srv, _ := newServer(t, dir, b, func(c *config.Config) {
		c.MaxQueueDepth = 1
		c.MaxWaitMS = 20
	})

	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(`{"model":"alpha","text":"a"}`))
		if err != nil {
			first <- 0
			return
		}
		_ = resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-b.started

	resp, body := httpPostJSON(t, srv.URL+"/chat", types.ChatRequest{Model: "alpha", Text: "b"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while the only slot is busy, got %d body=%s", resp.StatusCode, body)
	}
	close(b.hold)
	if code := <-first; code != http.StatusOK {
		t.Fatalf("first request status=%d", code)
	}
}
