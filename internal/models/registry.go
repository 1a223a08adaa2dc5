package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"aniportrait/internal/config"
	"aniportrait/internal/services"
)

// Well-known weight names.
const (
	VAE            = "vae"
	BaseModel      = "base_model"
	MotionModule   = "motion_module"
	ImageEncoder   = "image_encoder"
	DenoisingUNet  = "denoising_unet"
	ReferenceUNet  = "reference_unet"
	PoseGuider     = "pose_guider"
	Audio2Mesh     = "audio2mesh"
	Wav2Vec        = "wav2vec"
	FaceLandmarker = "face_landmarker"
)

// VideoWeights are needed by every generation request.
var VideoWeights = []string{VAE, BaseModel, MotionModule, ImageEncoder, DenoisingUNet, ReferenceUNet, PoseGuider}

// AudioWeights are additionally needed by audio-driven requests.
var AudioWeights = []string{Audio2Mesh, Wav2Vec}

var defaultLocations = map[string]string{
	VAE:            "sd-vae-ft-mse",
	BaseModel:      "stable-diffusion-v1-5",
	MotionModule:   "motion_module.pth",
	ImageEncoder:   "image_encoder",
	DenoisingUNet:  "denoising_unet.pth",
	ReferenceUNet:  "reference_unet.pth",
	PoseGuider:     "pose_guider.pth",
	Audio2Mesh:     "audio2mesh.pt",
	Wav2Vec:        "wav2vec2-base-960h",
	FaceLandmarker: "face_landmarker_v2_with_blendshapes.task",
}

var weightExtensions = []string{".pt", ".pth", ".bin", ".ckpt", ".safetensors", ".task"}

// Manifest is the YAML weight manifest.
type Manifest struct {
	Weights map[string]string `yaml:"weights"`
}

// Handle is a resolved weight location.
type Handle struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
}

// Registry resolves and caches weight handles. It is safe for concurrent use.
type Registry struct {
	root      string
	locations map[string]string

	mu    sync.Mutex
	cache map[string]Handle
}

// LoadManifest parses a YAML manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, services.Wrap(services.ErrConfiguration, "models", "parse manifest", path, err)
	}
	return manifest, nil
}

// NewRegistry layers manifest entries and overrides over the default locations.
// Relative locations are resolved against root.
func NewRegistry(root string, manifest Manifest, overrides map[string]string) *Registry {
	locations := make(map[string]string, len(defaultLocations))
	for name, loc := range defaultLocations {
		locations[name] = loc
	}
	for name, loc := range manifest.Weights {
		if strings.TrimSpace(loc) != "" {
			locations[strings.TrimSpace(name)] = strings.TrimSpace(loc)
		}
	}
	for name, loc := range overrides {
		if strings.TrimSpace(loc) != "" {
			locations[strings.TrimSpace(name)] = strings.TrimSpace(loc)
		}
	}
	return &Registry{root: root, locations: locations, cache: make(map[string]Handle)}
}

// FromConfig builds a registry from the models section. A configured manifest
// that does not exist is an error; an unset one is skipped.
func FromConfig(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, errors.New("models: config is nil")
	}
	var manifest Manifest
	if cfg.Models.Manifest != "" {
		loaded, err := LoadManifest(cfg.Models.Manifest)
		if err != nil {
			return nil, err
		}
		manifest = loaded
	}
	return NewRegistry(cfg.Models.Root, manifest, cfg.Models.Weights), nil
}

// Names returns every known weight name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.locations))
	for name := range r.locations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Location returns the configured path for name without touching the disk.
func (r *Registry) Location(name string) (string, bool) {
	loc, ok := r.locations[name]
	if !ok {
		return "", false
	}
	if filepath.IsAbs(loc) {
		return loc, true
	}
	return filepath.Join(r.root, loc), true
}

// Resolve returns the handle for name, checking it exists and is a weight
// file or a model directory.
func (r *Registry) Resolve(name string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.cache[name]; ok {
		return handle, nil
	}
	path, ok := r.Location(name)
	if !ok {
		return Handle{}, services.Wrap(services.ErrConfiguration, "models", "resolve",
			fmt.Sprintf("unknown weight %q", name), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Handle{}, services.Wrap(services.ErrNotFound, "models", "resolve",
			fmt.Sprintf("%s weights at %s", name, path), err)
	}
	if !info.IsDir() && !slices.Contains(weightExtensions, strings.ToLower(filepath.Ext(path))) {
		return Handle{}, services.Wrap(services.ErrConfiguration, "models", "resolve",
			fmt.Sprintf("%s weights at %s: unsupported file type", name, path), nil)
	}
	handle := Handle{Name: name, Path: path, Dir: info.IsDir()}
	r.cache[name] = handle
	return handle, nil
}

// ResolveAll resolves every name, failing on the first missing weight.
func (r *Registry) ResolveAll(names ...string) (map[string]Handle, error) {
	out := make(map[string]Handle, len(names))
	for _, name := range names {
		handle, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out[name] = handle
	}
	return out, nil
}
