// Package provider dispatches prompts to model providers with fallback
// chains: hosted inference first, then a deterministic local generator when
// the hosted path fails or is rate limited.
package provider

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Kind classifies how a model produces responses.
type Kind string

const (
	KindHosted Kind = "hosted"
	KindSample Kind = "sample"
	KindLocal  Kind = "local"
)

// Model is one catalog entry.
type Model struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	HostedModel string `yaml:"hosted_model"`
	Fallback    string `yaml:"fallback"`
}

// Registry is the static model catalog.
type Registry struct {
	models map[string]Model
	order  []string
}

//go:embed models.yaml
var catalogYAML []byte

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// NewRegistry loads the embedded model catalog.
func NewRegistry() (*Registry, error) {
	return parseRegistry(catalogYAML)
}

func parseRegistry(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "registry: parse catalog")
	}
	if len(file.Models) == 0 {
		return nil, eris.New("registry: empty catalog")
	}

	r := &Registry{models: make(map[string]Model, len(file.Models))}
	for _, m := range file.Models {
		if m.ID == "" {
			return nil, eris.New("registry: model with empty id")
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, eris.Errorf("registry: duplicate model id %q", m.ID)
		}
		r.models[m.ID] = m
		r.order = append(r.order, m.ID)
	}

	// Fallback references must resolve to sample models.
	for _, m := range file.Models {
		if m.Fallback == "" {
			continue
		}
		fb, ok := r.models[m.Fallback]
		if !ok {
			return nil, eris.Errorf("registry: model %q fallback %q not in catalog", m.ID, m.Fallback)
		}
		if fb.Kind != KindSample {
			return nil, eris.Errorf("registry: model %q fallback %q is not a sample model", m.ID, m.Fallback)
		}
	}

	return r, nil
}

// Get returns the model for id.
func (r *Registry) Get(id string) (Model, bool) {
	m, ok := r.models[id]
	return m, ok
}

// IsRegistered reports catalog membership. Satisfies model.Registry.
func (r *Registry) IsRegistered(id string) bool {
	_, ok := r.models[id]
	return ok
}

// IDs returns all model IDs in catalog order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
