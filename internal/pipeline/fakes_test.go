package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"aniportrait/internal/catalog"
	"aniportrait/internal/config"
	"aniportrait/internal/face"
	"aniportrait/internal/media/ffmpeg"
	"aniportrait/internal/media/ffprobe"
	"aniportrait/internal/mesh"
	"aniportrait/internal/models"
	"aniportrait/internal/pose"
	"aniportrait/internal/services"
	"aniportrait/internal/testsupport"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	// fail returns a non-nil error for the given call index.
	fail func(call int) error
}

func (f *fakeExtractor) Extract(_ context.Context, _ image.Image) (face.Result, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(call); err != nil {
			return face.Result{}, err
		}
	}
	return face.Result{
		Landmarks:   face.Landmarks2D{{X: 0.3, Y: 0.4}, {X: 0.7, Y: 0.4}, {X: 0.5, Y: 0.7}},
		Landmarks3D: []mgl64.Vec3{{-5, 0, 0}, {5, 0, 0}, {0, 5, 0}},
		Transform:   mgl64.Translate3D(0, 0, -60).Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(float64(call)))),
	}, nil
}

func noFace(int) error {
	return services.Wrap(face.ErrNoFace, "landmarks", "detect", "no face in image", nil)
}

type fakeFeatures struct {
	calls  int
	seqLen int
}

func (f *fakeFeatures) ExtractFeatures(_ context.Context, _ string, _ float64) (mesh.Feature, error) {
	f.calls++
	return mesh.Feature{Values: mat.NewDense(f.seqLen, 4, nil), SeqLen: f.seqLen}, nil
}

type fakeRegressor struct {
	calls int
}

func (f *fakeRegressor) Predict(_ context.Context, _ models.Handle, _ mesh.Feature, seqLen int) (*mat.Dense, error) {
	f.calls++
	return mat.NewDense(seqLen, 9, nil), nil
}

type fakeGenerator struct {
	calls int
	req   GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req GenerateRequest) (GenerateResult, error) {
	f.calls++
	f.req = req
	return GenerateResult{FramePattern: filepath.Join(req.OutputDir, "frame_%05d.png"), FrameCount: req.Frames}, nil
}

type fakeMedia struct {
	frames       int
	encodeErr    error
	muxErr       error
	decodeSizes  []image.Point
	audioOutputs []string
	muxCalls     int
}

func (f *fakeMedia) DecodeFrames(_ context.Context, _ string, size image.Point, fn ffmpeg.FrameFunc) (int, error) {
	f.decodeSizes = append(f.decodeSizes, size)
	for i := 0; i < f.frames; i++ {
		frame := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		frame.Set(0, 0, color.RGBA{R: uint8(i), A: 0xff})
		if err := fn(i, frame); err != nil {
			return i, err
		}
	}
	return f.frames, nil
}

func (f *fakeMedia) EncodeFrames(_ context.Context, _ string, _ float64, output string) error {
	if err := os.WriteFile(output, []byte("silent"), 0o644); err != nil {
		return err
	}
	return f.encodeErr
}

func (f *fakeMedia) ExtractAudio(_ context.Context, _ string, output string) error {
	f.audioOutputs = append(f.audioOutputs, output)
	return os.WriteFile(output, []byte("aac"), 0o644)
}

func (f *fakeMedia) Mux(_ context.Context, video, _ string) (string, error) {
	f.muxCalls++
	if f.muxErr != nil {
		return "", f.muxErr
	}
	out := ffmpeg.MuxedPath(video)
	return out, os.WriteFile(out, []byte("muxed"), 0o644)
}

type fakeWeights struct{}

func (fakeWeights) Resolve(name string) (models.Handle, error) {
	return models.Handle{Name: name, Path: "/weights/" + name}, nil
}

func (w fakeWeights) ResolveAll(names ...string) (map[string]models.Handle, error) {
	out := make(map[string]models.Handle, len(names))
	for _, name := range names {
		out[name], _ = w.Resolve(name)
	}
	return out, nil
}

func probeResult(t testing.TB, width, height, frames int, fps string, audio bool) Prober {
	t.Helper()
	streams := fmt.Sprintf(`{"codec_type":"video","width":%d,"height":%d,"avg_frame_rate":%q,"nb_frames":"%d"}`, width, height, fps, frames)
	if audio {
		streams += `,{"codec_type":"audio","codec_name":"aac"}`
	}
	res, err := ffprobe.Parse([]byte(`{"streams":[` + streams + `],"format":{"duration":"1.0"}}`))
	if err != nil {
		t.Fatalf("parse probe: %v", err)
	}
	return func(context.Context, string) (ffprobe.Result, error) { return res, nil }
}

type harness struct {
	cfg       *config.Config
	dir       string
	extractor *fakeExtractor
	features  *fakeFeatures
	regressor *fakeRegressor
	generator *fakeGenerator
	media     *fakeMedia
	deps      Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:       cfg,
		dir:       testsupport.BaseDir(cfg),
		extractor: &fakeExtractor{},
		features:  &fakeFeatures{seqLen: 6},
		regressor: &fakeRegressor{},
		generator: &fakeGenerator{},
		media:     &fakeMedia{frames: 5},
	}
	h.deps = Dependencies{
		Extractor: h.extractor,
		Features:  h.features,
		Regressor: h.regressor,
		Generator: h.generator,
		Media:     h.media,
		Probe:     probeResult(t, 64, 48, 5, "25/1", true),
		Weights:   fakeWeights{},
		Catalog:   testsupport.MustOpenCatalog(t, cfg),
	}
	return h
}

func (h *harness) service(t *testing.T) *Service {
	t.Helper()
	svc, err := New(h.cfg, h.deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// options returns generation options that keep the reference image size.
func (h *harness) options() config.Generation {
	opts := h.cfg.Generation
	opts.Width = 0
	opts.Height = 0
	return opts
}

func (h *harness) reference(t *testing.T) string {
	return testsupport.WriteImage(t, filepath.Join(h.dir, "inputs", "ref.png"), 48, 32, color.Gray{Y: 128})
}

func (h *harness) input(t *testing.T, name string) string {
	path := filepath.Join(h.dir, "inputs", name)
	testsupport.WriteFile(t, path, 16)
	return path
}

func (h *harness) template(t *testing.T, frames int) string {
	t.Helper()
	poses := make([]pose.Vector, frames)
	for i := range poses {
		poses[i] = pose.Vector{float64(i), 0, 0, 0, 0, 0}
	}
	path := filepath.Join(h.dir, "inputs", "motion.npy")
	if err := pose.SaveTemplate(path, pose.Sequence{Poses: poses, FPS: 30}); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	return path
}

// outputFiles lists output directory entries other than the catalog.
func (h *harness) outputFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.cfg.Paths.OutputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), catalog.DatabaseName) {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// scratchDirs lists request scratch directories left in the work directory.
func (h *harness) scratchDirs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
