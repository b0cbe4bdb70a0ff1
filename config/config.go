// Package config loads the runtime configuration of the viewer and the
// physics pass.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	EngineNative   = "native"
	EngineChipmunk = "chipmunk"
)

var ErrInvalid = errors.New("config: invalid")

type Physics struct {
	Engine      string    `yaml:"engine"`
	Gravity     []float64 `yaml:"gravity"`
	FixedStep   float64   `yaml:"fixed_step"`
	MaxSubSteps int       `yaml:"max_sub_steps"`
	Iterations  int       `yaml:"iterations"`
}

// GravityVec returns the configured gravity as a vector.
func (p Physics) GravityVec() mgl64.Vec3 {
	var g mgl64.Vec3
	copy(g[:], p.Gravity)
	return g
}

type Viewer struct {
	Title  string  `yaml:"title"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Zoom   float64 `yaml:"zoom"`
	Debug  bool    `yaml:"debug"`
}

type Config struct {
	Physics Physics `yaml:"physics"`
	Viewer  Viewer  `yaml:"viewer"`
	// Scene names a scene file, resolved the way prefabs.Load does.
	Scene string `yaml:"scene"`
}

func Default() Config {
	return Config{
		Physics: Physics{
			Engine:      EngineNative,
			Gravity:     []float64{0, -9.81, 0},
			FixedStep:   1.0 / 60,
			MaxSubSteps: 4,
			Iterations:  20,
		},
		Viewer: Viewer{
			Title:  "physync",
			Width:  960,
			Height: 540,
			Zoom:   40,
			Debug:  true,
		},
		Scene: "default_scene.yaml",
	}
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Physics.Engine {
	case EngineNative, EngineChipmunk:
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalid, c.Physics.Engine)
	}
	if len(c.Physics.Gravity) != 3 {
		return fmt.Errorf("%w: gravity needs 3 components, got %d", ErrInvalid, len(c.Physics.Gravity))
	}
	if c.Physics.FixedStep <= 0 {
		return fmt.Errorf("%w: fixed_step must be positive", ErrInvalid)
	}
	if c.Physics.MaxSubSteps < 1 {
		return fmt.Errorf("%w: max_sub_steps must be at least 1", ErrInvalid)
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("%w: viewer size %dx%d", ErrInvalid, c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.Zoom <= 0 {
		return fmt.Errorf("%w: zoom must be positive", ErrInvalid)
	}
	return nil
}
