package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"exoplanet-classifier/internal/common"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ModelMetadata contains information about an exported model
type ModelMetadata struct {
	Version       string    `json:"version"`
	ModelName     string    `json:"model_name"`
	TrainedAt     time.Time `json:"trained_at"`
	Features      []string  `json:"features"`
	Classes       []string  `json:"classes"`
	Accuracy      float64   `json:"accuracy"`
	InputShape    []int64   `json:"input_shape"`
	OutputShape   []int64   `json:"output_shape"`
	TrainingRows  int       `json:"training_rows"`
	ValidationAcc float64   `json:"validation_accuracy"`
}

// Artifacts locates one mission's exported scaler and model.
type Artifacts struct {
	Mission      mission.ID     `json:"mission"`
	Dir          string         `json:"dir"`
	ScalerPath   string         `json:"scaler_path,omitempty"`
	ModelPath    string         `json:"model_path,omitempty"`
	Metadata     *ModelMetadata `json:"metadata,omitempty"`
	ModelCreated time.Time      `json:"model_created,omitempty"`
}

// Ready reports whether both the scaler and the model were found.
func (a Artifacts) Ready() bool { return a.ScalerPath != "" && a.ModelPath != "" }

// InputLength returns the vector length the model declares, or 0 when unknown.
func (a Artifacts) InputLength() int {
	if a.Metadata == nil || len(a.Metadata.InputShape) == 0 {
		return 0
	}
	return int(a.Metadata.InputShape[len(a.Metadata.InputShape)-1])
}

// ModelInfo is the public description of a mission's model.
type ModelInfo struct {
	Mission      mission.ID      `json:"mission"`
	VectorLength int             `json:"vector_length"`
	Ready        bool            `json:"ready"`
	Version      string          `json:"version"`
	ModelAge     float64         `json:"model_age_seconds,omitempty"`
	Metadata     *ModelMetadata  `json:"metadata,omitempty"`
	Fields       []mission.Field `json:"fields"`
}

// Registry holds the artifacts discovered at startup. It is read-only after
// NewRegistry returns.
type Registry struct {
	modelsDir string
	artifacts map[mission.ID]Artifacts
}

// NewRegistry scans modelsDir/<mission>/ for every known mission.
func NewRegistry(modelsDir string) *Registry {
	r := &Registry{
		modelsDir: modelsDir,
		artifacts: make(map[mission.ID]Artifacts),
	}

	for _, id := range mission.All() {
		a := discover(modelsDir, id)
		r.artifacts[id] = a

		ev := log.Info()
		if !a.Ready() {
			ev = log.Warn()
		}
		ev.Str("mission", string(id)).
			Str("dir", a.Dir).
			Bool("ready", a.Ready()).
			Msg("Model artifacts scanned")
	}
	return r
}

// ModelsDir returns the scanned directory.
func (r *Registry) ModelsDir() string { return r.modelsDir }

// Artifacts returns the artifacts for id.
func (r *Registry) Artifacts(id mission.ID) (Artifacts, bool) {
	a, ok := r.artifacts[id]
	return a, ok
}

// ReadyMissions lists the missions whose scaler and model were both found.
func (r *Registry) ReadyMissions() []mission.ID {
	var out []mission.ID
	for _, id := range mission.All() {
		if r.artifacts[id].Ready() {
			out = append(out, id)
		}
	}
	return out
}

// Info describes the model for id.
func (r *Registry) Info(id mission.ID) (ModelInfo, error) {
	p, err := mission.Lookup(id)
	if err != nil {
		return ModelInfo{}, err
	}

	info := ModelInfo{
		Mission:      id,
		VectorLength: p.VectorLength,
		Version:      "unknown",
		Fields:       p.Fields,
	}
	if r == nil {
		return info, nil
	}

	a := r.artifacts[id]
	info.Ready = a.Ready()
	info.Metadata = a.Metadata
	if a.Metadata != nil && a.Metadata.Version != "" {
		info.Version = a.Metadata.Version
	}
	if !a.ModelCreated.IsZero() {
		info.ModelAge = time.Since(a.ModelCreated).Seconds()
	}
	return info, nil
}

func discover(modelsDir string, id mission.ID) Artifacts {
	dir := filepath.Join(modelsDir, string(id))
	a := Artifacts{Mission: id, Dir: dir}

	if p := filepath.Join(dir, common.ScalerFile); fileExists(p) {
		a.ScalerPath = p
	}
	if p := filepath.Join(dir, common.ModelFile); fileExists(p) {
		a.ModelPath = p
		if info, err := os.Stat(p); err == nil {
			a.ModelCreated = info.ModTime()
		}
	}

	md, err := loadModelMetadata(dir)
	if err != nil {
		if a.ModelPath != "" {
			log.Warn().Err(err).Str("mission", string(id)).Msg("Failed to load model metadata, using defaults")
		}
	} else {
		a.Metadata = md
	}
	return a
}

// loadModelMetadata reads model_metadata.json, or the newest
// model_metadata_*.json when the primary file is absent.
func loadModelMetadata(dir string) (*ModelMetadata, error) {
	primary := filepath.Join(dir, common.MetadataFile)
	if md, err := decodeMetadata(primary); err == nil {
		return md, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "model_metadata_*.json"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no metadata files found in %s", dir)
	}
	sort.Strings(matches) // chronological order
	return decodeMetadata(matches[len(matches)-1])
}

func decodeMetadata(path string) (*ModelMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var md ModelMetadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &md, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
