// Package prompt renders a system prompt and a turn sequence into the literal
// text an inference engine consumes.
package prompt

import (
	"fmt"
	"strings"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps a case-insensitive role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user", "":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Formatter renders prompts for one template family.
type Formatter interface {
	// Name is the template name used in configuration.
	Name() string
	// System renders a system prompt block.
	System(text string) string
	// Turns renders a turn sequence.
	Turns(turns []Turn) string
	// User renders a single user turn followed by the assistant marker.
	User(text string) string
	// Render renders system, turns and the opening marker for next.
	Render(system string, turns []Turn, next Role) string
}

// template is a Formatter described by per-role block framing.
type template struct {
	name string
	// open returns the text that starts a block for role.
	open func(Role) string
	// close terminates a block.
	close string
}

func (t template) Name() string { return t.name }

func (t template) block(r Role, content string) string {
	return t.open(r) + content + t.close
}

func (t template) System(text string) string { return t.block(RoleSystem, text) }

func (t template) Turns(turns []Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(t.block(turn.Role, turn.Content))
	}
	return b.String()
}

func (t template) User(text string) string {
	return t.block(RoleUser, text) + t.open(RoleAssistant)
}

func (t template) Render(system string, turns []Turn, next Role) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(t.System(system))
	}
	b.WriteString(t.Turns(turns))
	if next == "" {
		next = RoleAssistant
	}
	b.WriteString(t.open(next))
	return b.String()
}

// ChatML is the <|im_start|>role ... <|im_end|> template used by Qwen.
func ChatML() Formatter {
	return template{
		name:  "chatml",
		open:  func(r Role) string { return "<|im_start|>" + string(r) + "\n" },
		close: "\n<|im_end|>\n",
	}
}

// Phi3 is the <|role|> ... <|end|> template.
func Phi3() Formatter {
	return template{
		name:  "phi3",
		open:  func(r Role) string { return "<|" + string(r) + "|>\n" },
		close: "\n<|end|>\n",
	}
}

// Alpaca is the ### section header template used by TinyLlama builds.
func Alpaca() Formatter {
	return template{
		name: "alpaca",
		open: func(r Role) string {
			switch r {
			case RoleSystem:
				return "### Instruction:\n"
			case RoleUser:
				return "### Input:\n"
			default:
				return "### Response:\n"
			}
		},
		close: "\n\n",
	}
}

// Plain is the role-prefixed plaintext template ("User: ..."). It is the
// universal fallback.
func Plain() Formatter {
	return plain{}
}

type plain struct{}

func (plain) Name() string { return "plain" }

func (plain) label(r Role) string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}

func (p plain) System(text string) string { return p.label(RoleSystem) + ": " + text + "\n" }

func (p plain) Turns(turns []Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(p.label(turn.Role) + ": " + turn.Content + "\n")
	}
	return b.String()
}

func (p plain) User(text string) string {
	return p.label(RoleUser) + ": " + text + "\n" + p.label(RoleAssistant) + ": "
}

func (p plain) Render(system string, turns []Turn, next Role) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(p.System(system))
	}
	b.WriteString(p.Turns(turns))
	if next == "" {
		next = RoleAssistant
	}
	b.WriteString(p.label(next) + ": ")
	return b.String()
}

// builtins indexes the shipped templates by name.
var builtins = map[string]func() Formatter{
	"chatml": ChatML,
	"qwen":   ChatML,
	"phi3":   Phi3,
	"alpaca": Alpaca,
	"plain":  Plain,
}

// Lookup returns a built-in template by case-insensitive name.
func Lookup(name string) (Formatter, bool) {
	f, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return f(), true
}
