package api

import "github.com/fumitoshi0524/mcdropout/nn"

type DropoutRequest struct {
	Input      []float64     `json:"input"`
	Shape      []int         `json:"shape,omitempty"`
	Rate       float64       `json:"rate"`
	NoiseShape nn.NoiseShape `json:"noise_shape,omitempty"`
	Seed       *int64        `json:"seed,omitempty"`
	Training   *bool         `json:"training,omitempty"`
}

type DropoutResponse struct {
	ID      string    `json:"id"`
	Created int64     `json:"created"`
	Output  []float64 `json:"output"`
	Shape   []int     `json:"shape"`
	Config  nn.Config `json:"config"`
}

type PredictRequest struct {
	Input []float64 `json:"input"`
	Shape []int     `json:"shape,omitempty"`
	// Samples overrides the server default when set.
	Samples *int `json:"samples,omitempty"`
}

type PredictResponse struct {
	ID       string    `json:"id"`
	Created  int64     `json:"created"`
	Model    string    `json:"model"`
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`
	StdDev   []float64 `json:"stddev"`
	Shape    []int     `json:"shape"`
	Samples  int       `json:"samples"`
}
