package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harunnryd/vibechat/internal/model/contract"
)

// Invocation is what a handler receives: the user's original message plus
// the model-supplied arguments, already validated against Parameters.
type Invocation struct {
	UserMessage string
	Args        json.RawMessage
}

// Tool represents an executable capability.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, inv Invocation) (Result, error)
}

// Registry is the immutable name -> tool table shared by all runs.
type Registry struct {
	tools map[string]Tool
	names []string
}

// NewRegistry builds a registry and rejects empty or duplicate names.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}

	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("tool: nil tool")
		}
		name := NormalizeToolName(t.Name())
		if name == "" {
			return nil, fmt.Errorf("tool: empty tool name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool: duplicate tool name: %s", name)
		}
		r.tools[name] = t
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)

	return r, nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[NormalizeToolName(name)]
	return t, ok
}

// Names returns registered tool names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Descriptors returns the definitions advertised to the model, sorted by name.
func (r *Registry) Descriptors() []contract.ToolDef {
	if r == nil {
		return nil
	}
	defs := make([]contract.ToolDef, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		defs = append(defs, contract.ToolDef{
			Name:        name,
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// GetDescriptors is Descriptors plus normalized metadata.
func (r *Registry) GetDescriptors() []ToolDescriptor {
	if r == nil {
		return nil
	}
	descriptors := make([]ToolDescriptor, 0, len(r.names))
	for _, def := range r.Descriptors() {
		descriptors = append(descriptors, ToolDescriptor{Definition: def, Metadata: metadataFor(r.tools[def.Name])})
	}
	return descriptors
}

func NormalizeToolName(name string) string {
	return strings.TrimSpace(name)
}
