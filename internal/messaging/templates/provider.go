// Package templates holds the customer-facing copy of the assistant. Every
// message key has several phrasings; one is picked at random per reply.
package templates

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Params are the values substituted into a template, keyed by field name
// (e.g. "Treatment", "Date").
type Params map[string]any

// Provider renders catalog entries. Defaults (such as the clinic phone) are
// merged under the per-call params.
type Provider struct {
	catalog  Catalog
	defaults Params
	renderer Renderer

	mu  sync.Mutex
	rng *rand.Rand
}

func NewProvider(catalog Catalog, defaults Params) *Provider {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Provider{
		catalog:  catalog,
		defaults: defaults,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes variation choice deterministic.
func (p *Provider) WithSeed(seed int64) *Provider {
	p.mu.Lock()
	p.rng = rand.New(rand.NewSource(seed))
	p.mu.Unlock()
	return p
}

// Render picks a variation of key and fills it with params.
func (p *Provider) Render(key Key, params Params) (string, error) {
	variants := p.catalog[key]
	if len(variants) == 0 {
		return "", fmt.Errorf("templates: unknown message key %q", key)
	}
	p.mu.Lock()
	idx := p.rng.Intn(len(variants))
	p.mu.Unlock()
	return p.renderer.Render(string(key), variants[idx], p.merge(params))
}

// Variants renders every phrasing of key. Useful when a caller needs to
// recognize text it sent earlier.
func (p *Provider) Variants(key Key, params Params) ([]string, error) {
	variants := p.catalog[key]
	if len(variants) == 0 {
		return nil, fmt.Errorf("templates: unknown message key %q", key)
	}
	data := p.merge(params)
	out := make([]string, 0, len(variants))
	for i, v := range variants {
		text, err := p.renderer.Render(fmt.Sprintf("%s#%d", key, i), v, data)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

func (p *Provider) merge(params Params) Params {
	out := make(Params, len(p.defaults)+len(params))
	for k, v := range p.defaults {
		out[k] = v
	}
	for k, v := range params {
		out[k] = v
	}
	return out
}
