package nn

import (
	"math"
	"testing"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

func floatsAlmostEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestSequentialForwardBackward(t *testing.T) {
	linear1 := NewLinear(3, 2, true)
	mustSetData(t, linear1.Weight(), []float64{
		0.5, -1.0, 1.5,
		-0.25, 0.75, -0.5,
	})
	mustSetData(t, linear1.Bias(), []float64{0.1, -0.2})
	linear2 := NewLinear(2, 1, true)
	mustSetData(t, linear2.Weight(), []float64{0.6, -1.2})
	mustSetData(t, linear2.Bias(), []float64{0.05})
	model := NewSequential(linear1, Relu(), linear2)

	inputs := tensor.MustNew([]float64{
		1, 0, -1,
		2, 1, 0,
	}, 2, 3)
	out, err := model.Forward(inputs)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	// hidden = relu([[-0.9, 0.05], [0.1, 0.05]])
	want := []float64{0.05 + (-1.2 * 0.05), 0.6*0.1 - 1.2*0.05 + 0.05}
	if !floatsAlmostEqual(out.Data(), want, 1e-9) {
		t.Fatalf("unexpected output %v, want %v", out.Data(), want)
	}
	if err := tensor.Sum(out).Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	for i, p := range model.Parameters() {
		if p.Grad() == nil {
			t.Fatalf("expected gradient on parameter %d", i)
		}
	}
	if !floatsAlmostEqual(linear2.Bias().Grad().Data(), []float64{2}, 1e-9) {
		t.Fatalf("unexpected head bias grad %v", linear2.Bias().Grad().Data())
	}
}

func TestSequentialWrapsLayerErrors(t *testing.T) {
	model := NewSequential(NewLinear(3, 2, false), NewLinear(4, 1, false))
	if _, err := model.Forward(tensor.Ones(1, 3)); err == nil {
		t.Fatalf("expected shape error from second layer")
	}
}

func TestDropoutTrainVsEval(t *testing.T) {
	d := NewDropout(0.5)
	input := tensor.MustNew([]float64{1, 2, 3, 4}, 2, 2)
	input.SetRequiresGrad(true)
	if !d.Training() {
		t.Fatalf("new layers start in training mode")
	}
	trainOut, err := d.Forward(input)
	if err != nil {
		t.Fatalf("dropout forward (train) failed: %v", err)
	}
	inputData := input.Data()
	for i, v := range trainOut.Data() {
		if v != 0 && math.Abs(v-inputData[i]*2) > 1e-9 {
			t.Fatalf("train dropout mismatch at %d: got %v", i, v)
		}
	}
	if err := tensor.Sum(trainOut).Backward(); err != nil {
		t.Fatalf("dropout backward failed: %v", err)
	}
	for i, g := range input.Grad().Data() {
		if g != 0 && math.Abs(g-2) > 1e-9 {
			t.Fatalf("unexpected grad at %d: got %v", i, g)
		}
	}

	d.Eval()
	evalOut, err := d.Forward(input)
	if err != nil {
		t.Fatalf("dropout forward (eval) failed: %v", err)
	}
	if evalOut != input {
		t.Fatalf("eval dropout should return its input")
	}
}

func TestDropoutConfigRoundTrip(t *testing.T) {
	d := NewDropout(0.2, WithSeed(4), WithTrainable(false))
	spec, err := SerializeLayer(d)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if spec.ClassName != "Dropout" {
		t.Fatalf("unexpected class %q", spec.ClassName)
	}
	m, err := DeserializeLayer(spec)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	back := m.(*Dropout)
	if back.Rate() != 0.2 || back.Trainable() {
		t.Fatalf("config lost: rate %v trainable %v", back.Rate(), back.Trainable())
	}
}

func TestSetTrainingPropagates(t *testing.T) {
	std := NewDropout(0.5)
	always := NewAlwaysOnDropout(0.5)
	model := NewSequential(NewLinear(2, 2, true), std, always)
	SetTraining(model, false)
	if std.Training() || always.Training() {
		t.Fatalf("expected all layers in eval mode")
	}
	SetTraining(model, true)
	if !std.Training() || !always.Training() {
		t.Fatalf("expected all layers in training mode")
	}
}

func TestZeroGradAllHandlesNil(t *testing.T) {
	lin := NewLinear(2, 2, true)
	out, err := lin.Forward(tensor.MustNew([]float64{1, -1, 2, -2}, 2, 2))
	if err != nil {
		t.Fatalf("linear forward failed: %v", err)
	}
	if err := tensor.Sum(out).Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if lin.Weight().Grad() == nil {
		t.Fatalf("expected grad before ZeroGradAll")
	}
	ZeroGradAll(nil, lin)
	if lin.Weight().Grad() != nil || lin.Bias().Grad() != nil {
		t.Fatalf("ZeroGradAll should clear grads even with nil module present")
	}
}

func TestLinearConfigRoundTrip(t *testing.T) {
	lin := NewLinear(4, 3, false, WithName("proj"))
	back, err := LinearFromConfig(lin.GetConfig())
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if back.Name() != "proj" || back.Bias() != nil || !equalInts(back.Weight().Shape(), []int{3, 4}) {
		t.Fatalf("linear config lost: %v", back.GetConfig())
	}
	if _, err := LinearFromConfig(Config{"in_features": 2}); err == nil {
		t.Fatalf("expected missing out_features error")
	}
	if _, err := LinearFromConfig(Config{"in_features": 2.5, "out_features": 1}); err == nil {
		t.Fatalf("expected non-integer error")
	}
}
