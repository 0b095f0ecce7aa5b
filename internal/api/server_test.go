package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/fumitoshi0524/mcdropout/nn"
)

func newTestEcho(t *testing.T, model *nn.Sequential) *echo.Echo {
	t.Helper()
	server, err := NewServer(Config{Model: model, Samples: 16})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	e := echo.New()
	server.Register(e)
	return e
}

func testModel(t *testing.T) *nn.Sequential {
	t.Helper()
	lin := nn.NewLinear(2, 1, true, nn.WithName("head"))
	if err := lin.Weight().SetData([]float64{1, -1}); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if err := lin.Bias().SetData([]float64{0.5}); err != nil {
		t.Fatalf("set bias: %v", err)
	}
	return nn.NewSequential(lin, nn.NewDropout(0.5), nn.NewAlwaysOnDropout(0))
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["status"] != "ok" || body["model_loaded"] != false {
		t.Fatalf("unexpected health body %v", body)
	}
}

func TestDropoutSeededIsRepeatable(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	body := `{"input":[1,1,1,1,1,1,1,1],"shape":[2,4],"rate":0.5,"seed":42}`
	first := doJSON(t, e, http.MethodPost, "/v1/dropout", body)
	if first.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", first.Code, first.Body.String())
	}
	second := doJSON(t, e, http.MethodPost, "/v1/dropout", body)
	a := decodeBody[DropoutResponse](t, first)
	b := decodeBody[DropoutResponse](t, second)
	if a.ID == b.ID || !strings.HasPrefix(a.ID, "drop_") {
		t.Fatalf("expected distinct request ids, got %q and %q", a.ID, b.ID)
	}
	if len(a.Shape) != 2 || a.Shape[0] != 2 || a.Shape[1] != 4 {
		t.Fatalf("unexpected shape %v", a.Shape)
	}
	for i, v := range a.Output {
		if v != 0 && v != 2 {
			t.Fatalf("unexpected value %v at %d", v, i)
		}
		if v != b.Output[i] {
			t.Fatalf("seeded outputs differ at %d: %v vs %v", i, v, b.Output[i])
		}
	}
	if a.Config["rate"] != 0.5 || a.Config["seed"] != float64(42) {
		t.Fatalf("unexpected config %v", a.Config)
	}
}

func TestDropoutNoiseShapeBroadcasts(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	body := `{"input":[1,1,1,1,1,1],"shape":[2,3],"rate":0.5,"noise_shape":[null,1],"seed":3}`
	rec := doJSON(t, e, http.MethodPost, "/v1/dropout", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[DropoutResponse](t, rec)
	for row := 0; row < 2; row++ {
		first := resp.Output[row*3]
		for col := 1; col < 3; col++ {
			if resp.Output[row*3+col] != first {
				t.Fatalf("row %d not broadcast: %v", row, resp.Output)
			}
		}
	}
}

func TestDropoutRateZeroIsIdentity(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/dropout", `{"input":[1.5,-2,3],"rate":0,"training":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[DropoutResponse](t, rec)
	want := []float64{1.5, -2, 3}
	for i := range want {
		if resp.Output[i] != want[i] {
			t.Fatalf("output %v, want %v", resp.Output, want)
		}
	}
	if resp.Config["noise_shape"] != nil {
		t.Fatalf("expected null noise_shape, got %v", resp.Config["noise_shape"])
	}
}

func TestDropoutRejectsBadInput(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	cases := []string{
		`{"input":[1,2,3],"shape":[2,2],"rate":0.5}`,
		`{"rate":0.5}`,
		`{"input":[1],"noise_shape":[0],"rate":0.5}`,
		`not json`,
	}
	for _, body := range cases {
		rec := doJSON(t, e, http.MethodPost, "/v1/dropout", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status got %d", body, rec.Code)
		}
		resp := decodeBody[map[string]ErrorBody](t, rec)
		if resp["error"].Type != "invalid_request_error" || resp["error"].Message == "" {
			t.Fatalf("%s: unexpected error body %s", body, rec.Body.String())
		}
	}
}

func TestPredictWithoutModel(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"input":[1,2]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("model status: got %d", rec.Code)
	}
}

func TestPredictUsesLoadedModel(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, testModel(t))
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"input":[3,1,0,2],"shape":[2,2],"samples":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[PredictResponse](t, rec)
	if resp.Samples != 4 || resp.Model == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	// The standard dropout layer is off in inference mode.
	want := []float64{2.5, -1.5}
	for i := range want {
		if resp.Mean[i] != want[i] || resp.StdDev[i] != 0 {
			t.Fatalf("mean %v stddev %v, want mean %v", resp.Mean, resp.StdDev, want)
		}
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/predict", `{"input":[1,2],"samples":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero samples status: got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPost, "/v1/predict", `{"input":[1,2,3]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong width status: got %d", rec.Code)
	}
}

func TestModelDocument(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, testModel(t))
	rec := doJSON(t, e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	arch := decodeBody[nn.Architecture](t, rec)
	if len(arch.Layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(arch.Layers))
	}
	classes := []string{"Linear", "Dropout", "AlwaysOnDropout"}
	for i, want := range classes {
		if arch.Layers[i].ClassName != want {
			t.Fatalf("layer %d class %q, want %q", i, arch.Layers[i].ClassName, want)
		}
	}
}
