package nn

import (
	"fmt"
	"sync"
)

// Config is the exported configuration of a layer. Reconstructing a layer
// from the Config it exported yields an equivalent layer.
type Config map[string]any

// BaseLayer carries the configuration every layer shares: a name, whether
// its parameters are trainable, and the current training mode.
type BaseLayer struct {
	name      string
	trainable bool
	training  bool
}

func (b *BaseLayer) Name() string    { return b.name }
func (b *BaseLayer) Trainable() bool { return b.trainable }
func (b *BaseLayer) Training() bool  { return b.training }
func (b *BaseLayer) Train()          { b.training = true }
func (b *BaseLayer) Eval()           { b.training = false }

// GetConfig returns the base keys merged into every layer config.
func (b *BaseLayer) GetConfig() Config {
	return Config{
		"name":      b.name,
		"trainable": b.trainable,
	}
}

type options struct {
	name       string
	trainable  bool
	noiseShape NoiseShape
	seed       *int64
}

// Option configures a layer at construction time. Options a layer does not
// use are ignored.
type Option func(*options)

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithTrainable(trainable bool) Option {
	return func(o *options) { o.trainable = trainable }
}

// WithNoiseShape sets the dropout mask shape; Runtime axes take the input's
// size at call time.
func WithNoiseShape(shape NoiseShape) Option {
	return func(o *options) { o.noiseShape = shape.Clone() }
}

func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = &seed }
}

func buildOptions(prefix string, opts []Option) options {
	o := options{trainable: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.name == "" {
		o.name = uniqueName(prefix)
	}
	return o
}

func (o options) base() BaseLayer {
	return BaseLayer{name: o.name, trainable: o.trainable, training: true}
}

var names = struct {
	sync.Mutex
	counts map[string]int
}{counts: map[string]int{}}

func uniqueName(prefix string) string {
	names.Lock()
	defer names.Unlock()
	names.counts[prefix]++
	return fmt.Sprintf("%s_%d", prefix, names.counts[prefix])
}

// baseOptions recovers the name and trainable flag from an exported config.
func baseOptions(cfg Config) ([]Option, error) {
	var opts []Option
	if v, ok := cfg["name"]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("config name: expected string, got %T", v)
		}
		opts = append(opts, WithName(name))
	}
	if v, ok := cfg["trainable"]; ok && v != nil {
		trainable, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("config trainable: expected bool, got %T", v)
		}
		opts = append(opts, WithTrainable(trainable))
	}
	return opts, nil
}
