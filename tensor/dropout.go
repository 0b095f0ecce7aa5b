package tensor

import (
	"errors"
	"fmt"
)

var errDropoutRate = errors.New("dropout rate must be in [0, 1)")

// DropoutMask samples an inverted-dropout mask: each element is 0 with
// probability rate and 1/(1-rate) otherwise.
func DropoutMask(rate float64, src Source, shape ...int) (*Tensor, error) {
	if !(rate >= 0 && rate < 1) {
		return nil, errDropoutRate
	}
	if _, err := numel(shape); err != nil {
		return nil, fmt.Errorf("dropout mask: %w", err)
	}
	mask := Zeros(shape...)
	keep := 1.0 / (1 - rate)
	draw(src, len(mask.data), func(i int, u float64) {
		if u >= rate {
			mask.data[i] = keep
		}
	})
	return mask, nil
}

// DropoutWithNoise applies inverted dropout to input. The mask is sampled
// with noiseShape (input's own shape when nil) and broadcast against input,
// so axes of size 1 in noiseShape share one keep/drop decision.
func DropoutWithNoise(input *Tensor, rate float64, noiseShape []int, src Source) (*Tensor, error) {
	if input == nil {
		return nil, errors.New("dropout requires non-nil input")
	}
	if !(rate >= 0 && rate < 1) {
		return nil, errDropoutRate
	}
	if rate == 0 {
		return identity(input), nil
	}
	shape := noiseShape
	if shape == nil {
		shape = input.shape
	}
	mask, err := DropoutMask(rate, src, shape...)
	if err != nil {
		return nil, err
	}
	return MulBroadcast(input, mask)
}

// Dropout applies element-wise dropout while training and is the identity
// otherwise.
func Dropout(input *Tensor, p float64, training bool) (*Tensor, error) {
	if !(p >= 0 && p < 1) {
		return nil, errDropoutRate
	}
	if !training {
		if input == nil {
			return nil, errors.New("dropout requires non-nil input")
		}
		return identity(input), nil
	}
	return DropoutWithNoise(input, p, nil, nil)
}
