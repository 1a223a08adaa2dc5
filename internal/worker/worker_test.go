package worker

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/conditioning"
	"aniportrait/internal/logging"
	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
	"aniportrait/internal/pipeline"
	"aniportrait/internal/services"
)

type handlerFunc func(op string, params json.RawMessage) (any, string)

// serve connects a client to an in-process fake worker over io.Pipe.
func serve(t *testing.T, handler handlerFunc) *Client {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		defer respW.Close()
		dec := json.NewDecoder(reqR)
		enc := json.NewEncoder(respW)
		for {
			var req struct {
				ID     int64           `json:"id"`
				Op     string          `json:"op"`
				Params json.RawMessage `json:"params"`
			}
			if err := dec.Decode(&req); err != nil {
				return
			}
			result, errMsg := handler(req.Op, req.Params)
			resp := map[string]any{"id": req.ID, "ok": errMsg == ""}
			if errMsg != "" {
				resp["error"] = errMsg
			} else {
				resp["result"] = result
			}
			if err := enc.Encode(resp); err != nil {
				return
			}
		}
	}()

	client := NewClient(respR, reqW, closerFunc(func() error {
		_ = reqW.Close()
		return respR.Close()
	}), logging.NewNop())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type fixedResolver struct{}

func (fixedResolver) Resolve(name string) (models.Handle, error) {
	return models.Handle{Name: name, Path: "/weights/" + name}, nil
}

func TestClientRoundTrip(t *testing.T) {
	var gotOp string
	client := serve(t, func(op string, params json.RawMessage) (any, string) {
		gotOp = op
		var p map[string]int
		_ = json.Unmarshal(params, &p)
		return map[string]int{"sum": p["a"] + p["b"]}, ""
	})

	var res struct {
		Sum int `json:"sum"`
	}
	if err := client.Call(context.Background(), "add", map[string]int{"a": 2, "b": 3}, &res); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if gotOp != "add" || res.Sum != 5 {
		t.Fatalf("unexpected round trip op=%q sum=%d", gotOp, res.Sum)
	}
	// ids advance between calls
	if err := client.Call(context.Background(), "add", map[string]int{"a": 1}, nil); err != nil {
		t.Fatalf("second Call: %v", err)
	}
}

func TestClientSurfacesWorkerErrors(t *testing.T) {
	client := serve(t, func(string, json.RawMessage) (any, string) {
		return nil, "CUDA out of memory"
	})
	err := client.Call(context.Background(), "generate", nil, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestClientAbandonsCallOnCancel(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	client := serve(t, func(string, json.RawMessage) (any, string) {
		<-block
		return nil, ""
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := client.Call(ctx, "generate", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := client.Call(context.Background(), "generate", nil, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed client after abandon, got %v", err)
	}
}

func TestLandmarkExtractorDecodesResult(t *testing.T) {
	scratch := t.TempDir()
	client := serve(t, func(op string, params json.RawMessage) (any, string) {
		var p landmarksParams
		_ = json.Unmarshal(params, &p)
		if _, err := os.Stat(p.Image); err != nil {
			return nil, "image not staged"
		}
		return landmarksResult{
			Found:  true,
			Lmks:   [][]float64{{0.25, 0.5, 0.1}, {0.75, 0.5, 0.2}},
			Lmks3D: [][3]float64{{1, 2, 3}, {4, 5, 6}},
			TransMat: [][]float64{
				{1, 0, 0, 10},
				{0, 1, 0, 20},
				{0, 0, 1, 30},
				{0, 0, 0, 1},
			},
		}, ""
	})

	extractor := NewLandmarkExtractor(client, fixedResolver{}, scratch)
	res, err := extractor.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Landmarks) != 2 || res.Landmarks[1].X != 0.75 {
		t.Fatalf("unexpected landmarks %+v", res.Landmarks)
	}
	if res.Landmarks3D[1][2] != 6 {
		t.Fatalf("unexpected 3d landmarks %+v", res.Landmarks3D)
	}
	if res.Transform.At(0, 3) != 10 || res.Transform.At(2, 3) != 30 {
		t.Fatalf("translation column not decoded: %v", res.Transform)
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Fatalf("expected scratch image to be removed, found %d entries", len(entries))
	}
}

func TestLandmarkExtractorReportsNoFace(t *testing.T) {
	client := serve(t, func(string, json.RawMessage) (any, string) {
		return landmarksResult{Found: false}, ""
	})
	_, err := NewLandmarkExtractor(client, fixedResolver{}, t.TempDir()).Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, services.ErrNoFaceDetected) {
		t.Fatalf("expected no face error, got %v", err)
	}
}

func TestFeatureExtractionAndRegression(t *testing.T) {
	scratch := t.TempDir()
	featurePath := filepath.Join(scratch, "worker-feature.npy")
	if err := writeMatrix(featurePath, mat.NewDense(5, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})); err != nil {
		t.Fatalf("write feature: %v", err)
	}
	outputPath := filepath.Join(scratch, "worker-out.npy")

	client := serve(t, func(op string, params json.RawMessage) (any, string) {
		switch op {
		case "audio_features":
			return featureResult{FeaturePath: featurePath, SeqLen: 3}, ""
		case "audio2mesh":
			var p regressParams
			_ = json.Unmarshal(params, &p)
			in, err := readMatrix(p.Feature)
			if err != nil {
				return nil, err.Error()
			}
			if r, _ := in.Dims(); r != 5 {
				return nil, "unexpected feature rows"
			}
			if err := writeMatrix(outputPath, mat.NewDense(p.SeqLen, 3, make([]float64, p.SeqLen*3))); err != nil {
				return nil, err.Error()
			}
			return regressResult{OutputPath: outputPath}, ""
		}
		return nil, "unknown op " + op
	})

	feature, err := NewFeatureExtractor(client, fixedResolver{}).ExtractFeatures(context.Background(), "speech.wav", 30)
	if err != nil {
		t.Fatalf("ExtractFeatures: %v", err)
	}
	if feature.SeqLen != 3 {
		t.Fatalf("seq len = %d, want 3", feature.SeqLen)
	}

	driver := mesh.NewDriver(NewMeshRegressor(client, scratch), fixedResolver{}, mesh.Mesh{{1, 1, 1}})
	meshes, err := driver.Infer(context.Background(), feature, feature.SeqLen)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(meshes) != 3 || meshes[2][0][0] != 1 {
		t.Fatalf("unexpected meshes %+v", meshes)
	}
	for _, p := range []string{featurePath, outputPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected worker array %s to be cleaned up", p)
		}
	}
}

func TestGeneratorChecksFrameCount(t *testing.T) {
	client := serve(t, func(op string, params json.RawMessage) (any, string) {
		var p generateParams
		_ = json.Unmarshal(params, &p)
		if p.Weights[models.VAE] != "/weights/vae" || len(p.PoseShape) != 4 {
			return nil, "bad params"
		}
		return generateResult{FramePattern: filepath.Join(p.OutputDir, "frame_%05d.png"), FrameCount: 2}, ""
	})
	gen := NewGenerator(client)
	req := pipeline.GenerateRequest{
		Frames:       2,
		OutputDir:    "/tmp/out",
		Weights:      map[string]models.Handle{models.VAE: {Name: models.VAE, Path: "/weights/vae"}},
		Conditioning: conditioning.Result{Pose: conditioning.Tensor{Shape: []int{3, 2, 4, 4}}},
	}
	res, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.FrameCount != 2 {
		t.Fatalf("frame count = %d", res.FrameCount)
	}

	req.Frames = 3
	if _, err := gen.Generate(context.Background(), req); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected frame count mismatch error, got %v", err)
	}
}
