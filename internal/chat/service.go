// Package chat drives one chat exchange: it leases a model, resolves the
// formatter and decoding preset for it, renders the prompt, and streams the
// generation. It owns conversation turn history and no model resources.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatd/internal/decoding"
	"chatd/internal/manager"
	"chatd/internal/prompt"
	"chatd/pkg/types"
)

// DefaultSystemPrompt is used when neither configuration nor the request sets one.
const DefaultSystemPrompt = "You are a helpful assistant."

// Options configures a Service.
type Options struct {
	Manager    *manager.Manager
	Presets    *decoding.Table
	Formatters *prompt.Registry
	// SystemPrompt is the default system prompt.
	SystemPrompt string
	// MaxSessionTurns caps stored turns per session; 0 keeps all.
	MaxSessionTurns int
	Logger          *zerolog.Logger
}

// Service is the chat orchestrator. It is safe for concurrent use.
type Service struct {
	mgr        *manager.Manager
	presets    *decoding.Table
	formatters *prompt.Registry
	system     string
	maxTurns   int
	sessions   *sessionStore
	log        zerolog.Logger
}

// New builds a Service. Nil presets and formatters use the built-in tables.
func New(o Options) *Service {
	if o.Presets == nil {
		o.Presets = decoding.NewTable(decoding.Defaults())
	}
	if o.Formatters == nil {
		o.Formatters = prompt.NewRegistry(nil, prompt.DefaultRules()...)
	}
	if strings.TrimSpace(o.SystemPrompt) == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	log := zerolog.Nop()
	if o.Logger != nil {
		log = *o.Logger
	}
	return &Service{
		mgr:        o.Manager,
		presets:    o.Presets,
		formatters: o.Formatters,
		system:     o.SystemPrompt,
		maxTurns:   o.MaxSessionTurns,
		sessions:   newSessionStore(),
		log:        log.With().Str("component", "chat").Logger(),
	}
}

// Request is one chat exchange.
type Request struct {
	// Model names the target; empty selects the active model.
	Model string
	Text  string
	// History is rendered ahead of the session's stored turns.
	History   []prompt.Turn
	SessionID string
	// System replaces the default system prompt when set.
	System    string
	Overrides decoding.Overrides
}

// Reply is the outcome of a completed exchange.
type Reply struct {
	Model        string
	Text         string
	SessionID    string
	FinishReason string
	Usage        manager.Usage
}

// SelectModel makes name the active model and returns its canonical name.
func (s *Service) SelectModel(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", invalid("model name is required")
	}
	return s.mgr.SwitchActive(ctx, name)
}

// ListModels returns the active model and every configured name.
func (s *Service) ListModels() types.ModelsResponse {
	return types.ModelsResponse{Current: s.mgr.Active(), Available: s.mgr.ListConfigured()}
}

// UnloadModel releases the weights for name.
func (s *Service) UnloadModel(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("model name is required")
	}
	return s.mgr.Unload(name)
}

// Chat runs one exchange. When onFragment is non-nil each output fragment is
// passed to it as it is produced; returning an error aborts generation. The
// exchange is recorded in the session only if generation succeeds.
func (s *Service) Chat(ctx context.Context, req Request, onFragment func(string) error) (Reply, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Reply{}, invalid("text is required")
	}
	history, err := normalizeTurns(req.History)
	if err != nil {
		return Reply{}, err
	}

	var lease *manager.Lease
	if strings.TrimSpace(req.Model) == "" {
		lease, err = s.mgr.AcquireActive(ctx)
	} else {
		lease, err = s.mgr.Acquire(ctx, req.Model)
	}
	if err != nil {
		return Reply{}, err
	}
	defer lease.Release()

	name := lease.Name()
	f := s.formatters.Resolve(name)
	preset := s.presets.Resolve(name).With(req.Overrides)
	system := s.system
	if strings.TrimSpace(req.System) != "" {
		system = req.System
	}

	sid := req.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	turns := append(history, s.sessions.turns(sid)...)
	turns = append(turns, prompt.Turn{Role: prompt.RoleUser, Content: req.Text})
	text := f.Render(system, turns, prompt.RoleAssistant)

	log := s.log.With().Str("model", name).Str("lease", lease.ID()).Str("session", sid).Logger()
	log.Debug().Str("formatter", f.Name()).Int("turns", len(turns)).Int("max_tokens", preset.MaxTokens).Msg("generation start")
	start := time.Now()

	var b strings.Builder
	fragments := 0
	res, err := lease.Generate(ctx, text, preset, func(frag string) error {
		fragments++
		b.WriteString(frag)
		if onFragment != nil {
			return onFragment(frag)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Int("fragments", fragments).Msg("generation failed")
		return Reply{}, err
	}

	out := res.Content
	if out == "" {
		out = b.String()
	}
	out = strings.TrimSpace(decoding.TrimStop(out, preset.Stop))
	s.sessions.get(sid).record(s.maxTurns,
		prompt.Turn{Role: prompt.RoleUser, Content: req.Text},
		prompt.Turn{Role: prompt.RoleAssistant, Content: out},
	)
	log.Info().Dur("elapsed", time.Since(start)).Int("fragments", fragments).Int("chars", len(out)).Msg("generation done")

	return Reply{
		Model:        name,
		Text:         out,
		SessionID:    sid,
		FinishReason: res.FinishReason,
		Usage:        res.Usage,
	}, nil
}

// ChatStream is Chat for callers that consume fragments as they arrive.
func (s *Service) ChatStream(ctx context.Context, req Request, onFragment func(string) error) (Reply, error) {
	if onFragment == nil {
		return Reply{}, invalid("fragment callback is required")
	}
	return s.Chat(ctx, req, onFragment)
}

// CloseSession forgets a conversation.
func (s *Service) CloseSession(id string) error {
	if !s.sessions.delete(id) {
		return &SessionNotFoundError{ID: id}
	}
	return nil
}

// History returns the stored turns of a session.
func (s *Service) History(id string) ([]prompt.Turn, error) {
	sess, ok := s.sessions.m.Load(id)
	if !ok {
		return nil, &SessionNotFoundError{ID: id}
	}
	return sess.snapshot(), nil
}

// ExpireSessions drops sessions idle for longer than maxIdle.
func (s *Service) ExpireSessions(maxIdle time.Duration) int {
	n := s.sessions.expire(time.Now().Add(-maxIdle))
	if n > 0 {
		s.log.Debug().Int("expired", n).Msg("sessions expired")
	}
	return n
}

// Status reports manager state plus the open session count.
func (s *Service) Status() types.StatusResponse {
	st := s.mgr.Status()
	st.Sessions = s.sessions.len()
	return st
}

// Ready reports whether an active model is loaded.
func (s *Service) Ready() bool { return s.mgr.Ready() }

func normalizeTurns(in []prompt.Turn) ([]prompt.Turn, error) {
	out := make([]prompt.Turn, 0, len(in))
	for i, t := range in {
		r, err := prompt.ParseRole(string(t.Role))
		if err != nil {
			return nil, invalid("history[%d]: %v", i, err)
		}
		out = append(out, prompt.Turn{Role: r, Content: t.Content})
	}
	return out, nil
}
