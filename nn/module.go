package nn

import (
	"errors"
	"fmt"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
	ZeroGrad()
}

type StatefulModule interface {
	Module
	StateDict(prefix string, state map[string]*tensor.Tensor)
	LoadState(prefix string, state map[string]*tensor.Tensor) error
}

// ModeSetter is implemented by modules that track training versus inference
// mode.
type ModeSetter interface {
	Train()
	Eval()
}

// SetTraining switches m, and every child of a Sequential, into training or
// inference mode. Modules without a mode are left alone.
func SetTraining(m Module, training bool) {
	ms, ok := m.(ModeSetter)
	if !ok {
		return
	}
	if training {
		ms.Train()
	} else {
		ms.Eval()
	}
}

func ZeroGradAll(mods ...Module) {
	for _, m := range mods {
		if m == nil {
			continue
		}
		m.ZeroGrad()
	}
}

// SaveModule writes the module's tensors to path.
func SaveModule(path string, mod Module) error {
	if mod == nil {
		return errors.New("SaveModule requires non-nil module")
	}
	state := StateOf(mod)
	if len(state) == 0 {
		return errors.New("module has no state to save")
	}
	return tensor.SaveTensors(path, state)
}

// LoadModule restores tensors written by SaveModule into mod.
func LoadModule(path string, mod Module) error {
	if mod == nil {
		return errors.New("LoadModule requires non-nil module")
	}
	state, err := tensor.LoadTensors(path)
	if err != nil {
		return err
	}
	return LoadStateInto(mod, state)
}

// StateOf collects a module's tensors keyed by their dotted path.
func StateOf(mod Module) map[string]*tensor.Tensor {
	state := make(map[string]*tensor.Tensor)
	collectState("", mod, state)
	return state
}

func LoadStateInto(mod Module, state map[string]*tensor.Tensor) error {
	return restoreState("", mod, state)
}

func collectState(prefix string, mod Module, state map[string]*tensor.Tensor) {
	if sm, ok := mod.(StatefulModule); ok {
		sm.StateDict(prefix, state)
		return
	}
	for idx, p := range mod.Parameters() {
		if p != nil {
			state[joinPrefix(prefix, fmt.Sprintf("param_%d", idx))] = p.Clone()
		}
	}
}

func restoreState(prefix string, mod Module, state map[string]*tensor.Tensor) error {
	if sm, ok := mod.(StatefulModule); ok {
		return sm.LoadState(prefix, state)
	}
	for idx, p := range mod.Parameters() {
		if p == nil {
			continue
		}
		key := joinPrefix(prefix, fmt.Sprintf("param_%d", idx))
		t, ok := state[key]
		if !ok {
			return fmt.Errorf("missing parameter %s", key)
		}
		if err := tensor.CopyInto(p, t); err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
	}
	return nil
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}
