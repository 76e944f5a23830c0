package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/chat"
	"chatd/internal/decoding"
	"chatd/internal/prompt"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() types.ModelsResponse
	SelectModel(ctx context.Context, name string) (string, error)
	UnloadModel(name string) error
	Chat(ctx context.Context, req chat.Request, onFragment func(string) error) (chat.Reply, error)
	CloseSession(id string) error
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the HTTP router over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Get("/models", h.listModels)
	r.Post("/models/select", h.selectModel)
	r.Post("/models/unload", h.unloadModel)
	r.Post("/chat", h.chat)
	r.Post("/chat/stream", h.chatStream)
	r.Delete("/sessions/{id}", h.closeSession)
	r.Get("/ws", h.websocket)
	r.Get("/status", h.status)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no active model"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// listModels godoc
// @Summary  List configured models
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Router   /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListModels())
}

// selectModel godoc
// @Summary  Switch the active model, loading it if needed
// @Accept   json
// @Produce  json
// @Param    body body types.SelectRequest true "model name"
// @Success  200 {object} types.SelectResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  502 {object} types.ErrorResponse
// @Router   /models/select [post]
func (h *handlers) selectModel(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	name, err := h.svc.SelectModel(ctx, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	zlog.Info().Str("model", name).Str("request_id", middleware.GetReqID(r.Context())).Msg("model selected")
	writeJSON(w, http.StatusOK, types.SelectResponse{Name: name, Status: "active"})
}

// unloadModel godoc
// @Summary  Unload a model that is neither active nor in use
// @Accept   json
// @Produce  json
// @Param    body body types.SelectRequest true "model name"
// @Success  200 {object} types.SelectResponse
// @Failure  409 {object} types.ErrorResponse
// @Router   /models/unload [post]
func (h *handlers) unloadModel(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UnloadModel(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SelectResponse{Name: req.Name, Status: "unloaded"})
}

// chat godoc
// @Summary  Run one chat exchange
// @Accept   json
// @Produce  json
// @Param    body body types.ChatRequest true "chat request"
// @Success  200 {object} types.ChatResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  409 {object} types.ErrorResponse
// @Failure  429 {object} types.ErrorResponse
// @Router   /chat [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	defer trackChat(transportJSON)()
	cl := newChatLog(r, req.Model)
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	reply, err := h.svc.Chat(ctx, toChatRequest(req), nil)
	if err != nil {
		if r.Context().Err() != nil || shuttingDown() {
			cl.end(499, err)
			return
		}
		cl.end(writeError(w, err), err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(reply))
	cl.end(http.StatusOK, nil)
}

// chatStream godoc
// @Summary  Run one chat exchange, streaming NDJSON fragments
// @Accept   json
// @Produce  application/x-ndjson
// @Param    body body types.ChatRequest true "chat request"
// @Success  200 {object} types.StreamChunk
// @Router   /chat/stream [post]
func (h *handlers) chatStream(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	defer trackChat(transportNDJSON)()
	cl := newChatLog(r, req.Model)
	ctx, cancel := requestContext(r.Context())
	defer cancel()

	sw := newNDJSONWriter(w)
	reply, err := h.svc.Chat(ctx, toChatRequest(req), func(s string) error {
		cl.fragment(s)
		countFragment(transportNDJSON)
		return sw.write(types.StreamChunk{Token: s})
	})
	if err != nil {
		if r.Context().Err() != nil || shuttingDown() {
			cl.end(499, err)
			return
		}
		if !sw.started {
			cl.end(writeError(w, err), err)
			return
		}
		_ = sw.write(types.StreamChunk{Done: true, Error: err.Error()})
		cl.end(http.StatusOK, err)
		return
	}
	_ = sw.write(types.StreamChunk{Done: true, SessionID: reply.SessionID})
	cl.end(http.StatusOK, nil)
}

// closeSession godoc
// @Summary  Forget a conversation
// @Param    id path string true "session id"
// @Success  204
// @Failure  404 {object} types.ErrorResponse
// @Router   /sessions/{id} [delete]
func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// status godoc
// @Summary  Loaded models, in-flight counts and counters
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// decodeJSON enforces the content type and body limit and decodes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func toChatRequest(in types.ChatRequest) chat.Request {
	out := chat.Request{
		Model:     in.Model,
		Text:      in.Text,
		SessionID: in.SessionID,
		System:    in.System,
	}
	for _, t := range in.History {
		out.History = append(out.History, prompt.Turn{Role: prompt.Role(t.Role), Content: t.Content})
	}
	if o := in.Overrides; o != nil {
		out.Overrides = decoding.Overrides{
			Temperature:   o.Temperature,
			TopP:          o.TopP,
			TopK:          o.TopK,
			MinP:          o.MinP,
			RepeatPenalty: o.RepeatPenalty,
			MaxTokens:     o.MaxTokens,
			Stop:          o.Stop,
		}
	}
	return out
}

func toChatResponse(r chat.Reply) types.ChatResponse {
	out := types.ChatResponse{
		Model:        r.Model,
		Text:         r.Text,
		SessionID:    r.SessionID,
		FinishReason: r.FinishReason,
	}
	if r.Usage.TotalTokens > 0 {
		out.Usage = &types.Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	return out
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
