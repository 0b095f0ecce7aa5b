package nn

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownLayer = errors.New("unknown layer class")

// Configurable is implemented by layers that can export their configuration
// for later reconstruction.
type Configurable interface {
	ClassName() string
	GetConfig() Config
}

// Factory builds a module from an exported config.
type Factory func(cfg Config) (Module, error)

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: map[string]Factory{}}

// Register makes a layer class available to DeserializeLayer. Registering a
// class twice replaces the earlier factory.
func Register(className string, factory Factory) {
	registry.Lock()
	defer registry.Unlock()
	registry.factories[className] = factory
}

func Lookup(className string) (Factory, bool) {
	registry.RLock()
	defer registry.RUnlock()
	f, ok := registry.factories[className]
	return f, ok
}

// RegisteredClasses lists the known class names in lexical order.
func RegisteredClasses() []string {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LayerSpec is the persisted form of one layer.
type LayerSpec struct {
	ClassName string `json:"class_name" yaml:"class_name"`
	Config    Config `json:"config" yaml:"config"`
}

func SerializeLayer(m Module) (LayerSpec, error) {
	c, ok := m.(Configurable)
	if !ok {
		return LayerSpec{}, fmt.Errorf("layer %T does not export a config", m)
	}
	return LayerSpec{ClassName: c.ClassName(), Config: c.GetConfig()}, nil
}

func DeserializeLayer(spec LayerSpec) (Module, error) {
	factory, ok := Lookup(spec.ClassName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, spec.ClassName)
	}
	cfg := spec.Config
	if cfg == nil {
		cfg = Config{}
	}
	return factory(cfg)
}

func init() {
	Register("AlwaysOnDropout", func(cfg Config) (Module, error) {
		l, err := AlwaysOnDropoutFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	})
	Register("Dropout", func(cfg Config) (Module, error) {
		l, err := DropoutFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	})
	Register("Linear", func(cfg Config) (Module, error) {
		l, err := LinearFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	})
	Register("ReLU", func(cfg Config) (Module, error) {
		opts, err := baseOptions(cfg)
		if err != nil {
			return nil, err
		}
		return Relu(opts...), nil
	})
}
