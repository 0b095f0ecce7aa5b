package nn

import (
	"fmt"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

type Sequential struct {
	name    string
	modules []Module
}

func NewSequential(mods ...Module) *Sequential {
	return &Sequential{name: uniqueName("sequential"), modules: append([]Module(nil), mods...)}
}

func (s *Sequential) Name() string { return s.name }

func (s *Sequential) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := input
	for idx, m := range s.modules {
		out, err = m.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%T): %w", idx, m, err)
		}
	}
	return out, nil
}

func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

func (s *Sequential) ZeroGrad() {
	for _, m := range s.modules {
		m.ZeroGrad()
	}
}

func (s *Sequential) Train() {
	for _, m := range s.modules {
		SetTraining(m, true)
	}
}

func (s *Sequential) Eval() {
	for _, m := range s.modules {
		SetTraining(m, false)
	}
}

func (s *Sequential) StateDict(prefix string, state map[string]*tensor.Tensor) {
	for idx, mod := range s.modules {
		collectState(joinPrefix(prefix, fmt.Sprintf("%d", idx)), mod, state)
	}
}

func (s *Sequential) LoadState(prefix string, state map[string]*tensor.Tensor) error {
	for idx, mod := range s.modules {
		if err := restoreState(joinPrefix(prefix, fmt.Sprintf("%d", idx)), mod, state); err != nil {
			return err
		}
	}
	return nil
}

// Architecture is the persisted layer list of a Sequential model. Weights
// are stored separately by SaveModule.
type Architecture struct {
	Name   string      `json:"name" yaml:"name"`
	Layers []LayerSpec `json:"layers" yaml:"layers"`
}

func (s *Sequential) Architecture() (Architecture, error) {
	arch := Architecture{Name: s.name, Layers: make([]LayerSpec, 0, len(s.modules))}
	for idx, m := range s.modules {
		spec, err := SerializeLayer(m)
		if err != nil {
			return Architecture{}, fmt.Errorf("layer %d: %w", idx, err)
		}
		arch.Layers = append(arch.Layers, spec)
	}
	return arch, nil
}

// BuildSequential instantiates every layer of arch through the registry.
func BuildSequential(arch Architecture) (*Sequential, error) {
	mods := make([]Module, 0, len(arch.Layers))
	for idx, spec := range arch.Layers {
		m, err := DeserializeLayer(spec)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", idx, err)
		}
		mods = append(mods, m)
	}
	seq := NewSequential(mods...)
	if arch.Name != "" {
		seq.name = arch.Name
	}
	return seq, nil
}
