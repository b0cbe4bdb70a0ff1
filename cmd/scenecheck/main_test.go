package main

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/milk9111/physync/config"
)

func TestCheckDefaultScene(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	for _, engine := range []string{config.EngineNative, config.EngineChipmunk} {
		t.Run(engine, func(t *testing.T) {
			res, err := check("default_scene.yaml", engine, 2, -50, logger)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if res.bodies != 7 {
				t.Fatalf("bodies = %d, want 7", res.bodies)
			}
			if res.steps < 100 {
				t.Fatalf("steps = %d, want about 120", res.steps)
			}
			if len(res.lost) != 0 {
				t.Fatalf("lost bodies: %v", res.lost)
			}
		})
	}
}

func TestCheckReportsLostBodies(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	// a floor above the whole scene loses everything
	res, err := check("default_scene.yaml", config.EngineNative, 0.1, 100, logger)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.lost) != res.bodies {
		t.Fatalf("lost %d of %d bodies", len(res.lost), res.bodies)
	}
	if !strings.Contains(res.String(), "ball fell out of the world") {
		t.Fatalf("report = %q", res.String())
	}
}

func TestCheckErrors(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	if _, err := check("missing.yaml", config.EngineNative, 1, -50, logger); err == nil {
		t.Fatalf("expected a load error")
	}
	if _, err := check("default_scene.yaml", "bullet", 1, -50, logger); err == nil {
		t.Fatalf("expected an engine error")
	}
}
