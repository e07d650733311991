package provider

import (
	"fmt"
	"sort"

	"github.com/haasonsaas/agent-engine/internal/config"
)

// Registry holds every provider adapter configured for this process, keyed
// by provider id.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds adapters for every provider present in cfg. A provider
// whose API key is unset is simply absent from the registry.
func NewRegistry(cfg config.ProvidersConfig) *Registry {
	reg := &Registry{adapters: make(map[string]Adapter)}

	if p := cfg.OpenAI; p != nil {
		reg.adapters[p.ID] = NewOpenAICompatibleAdapter(p.ID, p.APIKey, p.BaseURL, p.Model)
	}
	if p := cfg.Anthropic; p != nil {
		reg.adapters[p.ID] = NewAnthropicAdapter(p.ID, p.APIKey, p.BaseURL, p.Model)
	}
	if p := cfg.Custom; p != nil {
		reg.adapters[p.ID] = NewOpenAICompatibleAdapter(p.ID, p.APIKey, p.BaseURL, p.Model)
	}

	return reg
}

// Get returns the adapter for providerID, or an error if it is not
// configured.
func (r *Registry) Get(providerID string) (Adapter, error) {
	a, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", providerID)
	}
	return a, nil
}

// All returns every configured adapter keyed by provider id.
func (r *Registry) All() map[string]Adapter {
	out := make(map[string]Adapter, len(r.adapters))
	for id, a := range r.adapters {
		out[id] = a
	}
	return out
}

// IDs returns every configured provider id in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
