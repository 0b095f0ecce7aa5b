package nn

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

func TestParseNoiseShape(t *testing.T) {
	shape, err := ParseNoiseShape("(1, ?, 8)")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !shape.Equal(NoiseShape{1, Runtime, 8}) {
		t.Fatalf("unexpected shape %v", shape)
	}
	shape, err = ParseNoiseShape("None,_,4")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !shape.Equal(NoiseShape{Runtime, Runtime, 4}) {
		t.Fatalf("unexpected shape %v", shape)
	}
	if shape, err := ParseNoiseShape("  "); err != nil || shape != nil {
		t.Fatalf("expected nil shape for empty input, got %v %v", shape, err)
	}
	for _, bad := range []string{"1,x", "0,2", "-3"} {
		if _, err := ParseNoiseShape(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNoiseShapeResolve(t *testing.T) {
	shape := NoiseShape{Runtime, 1, Runtime, Runtime}
	got := shape.Resolve([]int{7, 5, 3})
	if !equalInts(got, []int{7, 1, 3, 1}) {
		t.Fatalf("unexpected resolved shape %v", got)
	}
	if NoiseShape(nil).Resolve([]int{2}) != nil {
		t.Fatalf("nil noise shape should resolve to nil")
	}
}

func TestNoiseShapeString(t *testing.T) {
	if s := (NoiseShape{2, Runtime}).String(); s != "(2, ?)" {
		t.Fatalf("unexpected string %q", s)
	}
	if s := NoiseShape(nil).String(); s != "None" {
		t.Fatalf("unexpected string %q", s)
	}
}

func TestNoiseShapeJSON(t *testing.T) {
	type wrapper struct {
		Shape NoiseShape `json:"noise_shape"`
	}
	data, err := json.Marshal(wrapper{Shape: NoiseShape{Runtime, 1, 16}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"noise_shape":[null,1,16]}` {
		t.Fatalf("unexpected JSON %s", data)
	}
	var back wrapper
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Shape.Equal(NoiseShape{Runtime, 1, 16}) {
		t.Fatalf("unexpected decoded shape %v", back.Shape)
	}
	if err := json.Unmarshal([]byte(`{"noise_shape":[0]}`), &back); err == nil {
		t.Fatalf("expected error for non-positive axis")
	}
}

func TestNoiseShapeYAML(t *testing.T) {
	type wrapper struct {
		Shape NoiseShape `yaml:"noise_shape"`
	}
	data, err := yaml.Marshal(wrapper{Shape: NoiseShape{4, Runtime}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), "null") {
		t.Fatalf("expected null placeholder in YAML, got %s", data)
	}
	var back wrapper
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Shape.Equal(NoiseShape{4, Runtime}) {
		t.Fatalf("unexpected decoded shape %v", back.Shape)
	}
}

func TestNoiseShapeFromConfigForms(t *testing.T) {
	cases := []any{
		[]any{nil, 2.0, 3},
		[]int{2, 3},
		NoiseShape{Runtime, 2, 3},
	}
	wants := []NoiseShape{{Runtime, 2, 3}, {2, 3}, {Runtime, 2, 3}}
	for i, in := range cases {
		got, err := noiseShapeFromConfig(in)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !got.Equal(wants[i]) {
			t.Fatalf("case %d: got %v want %v", i, got, wants[i])
		}
	}
	if _, err := noiseShapeFromConfig([]any{1.5}); err == nil {
		t.Fatalf("expected error for fractional axis")
	}
	if _, err := noiseShapeFromConfig("1,2"); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
