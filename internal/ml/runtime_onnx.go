package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"exoplanet-classifier/internal/common"
	"exoplanet-classifier/internal/features"
	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ErrArtifactsMissing is the cause when a mission has no exported scaler or model.
var ErrArtifactsMissing = errors.New("model artifacts missing")

// ErrRuntimeNotReady is the cause when no usable Python interpreter was found.
var ErrRuntimeNotReady = errors.New("onnx runtime not ready")

// ONNXRuntime runs exported ONNX scalers and models through onnxruntime in a
// Python subprocess, one process per step.
type ONNXRuntime struct {
	registry   *Registry
	pythonPath string
	scriptPath string
	timeout    time.Duration
	available  bool
}

type onnxRequest struct {
	Features []float64 `json:"features"`
}

type onnxResponse struct {
	Scaled        []float64 `json:"scaled,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
	Prediction    int       `json:"prediction"`
	Error         string    `json:"error,omitempty"`
}

// NewONNXRuntime prepares the subprocess runtime. It never fails: when Python
// or the inference script cannot be set up, the runtime reports itself
// unavailable and every call fails, which sends predictions to the fallback.
func NewONNXRuntime(registry *Registry, pythonPath string, timeout time.Duration) *ONNXRuntime {
	rt := &ONNXRuntime{registry: registry, timeout: timeout}
	if rt.timeout <= 0 {
		rt.timeout = 5 * time.Second
	}

	if len(registry.ReadyMissions()) == 0 {
		log.Warn().Str("models_dir", registry.ModelsDir()).Msg("No ONNX models found, ML inference will be disabled")
		return rt
	}

	if pythonPath == "" {
		p, err := findPython()
		if err != nil {
			log.Warn().Err(err).Msg("Python not found, using fallback heuristics")
			return rt
		}
		pythonPath = p
	}
	rt.pythonPath = pythonPath

	scriptPath, err := ensureInferenceScript(registry.ModelsDir())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create inference script, using fallback")
		return rt
	}
	rt.scriptPath = scriptPath
	rt.available = true

	log.Info().
		Str("python_path", rt.pythonPath).
		Str("script_path", rt.scriptPath).
		Int("ready_missions", len(registry.ReadyMissions())).
		Msg("ONNX runtime prepared")
	return rt
}

// Available reports whether the runtime can attempt inference at all.
func (rt *ONNXRuntime) Available() bool { return rt != nil && rt.available }

// Scale implements Runtime.
func (rt *ONNXRuntime) Scale(ctx context.Context, id mission.ID, vec features.Vector) ([]float64, error) {
	a, err := rt.artifacts(id)
	if err != nil {
		return nil, err
	}
	if want := a.InputLength(); want > 0 && want != len(vec) {
		return nil, fmt.Errorf("shape mismatch: model expects %d features, got %d", want, len(vec))
	}

	resp, err := rt.run(ctx, "scale", a.ScalerPath, vec)
	if err != nil {
		return nil, err
	}
	return resp.Scaled, nil
}

// Classify implements Runtime.
func (rt *ONNXRuntime) Classify(ctx context.Context, id mission.ID, scaled []float64) (Inference, error) {
	a, err := rt.artifacts(id)
	if err != nil {
		return Inference{}, err
	}

	resp, err := rt.run(ctx, "classify", a.ModelPath, scaled)
	if err != nil {
		return Inference{}, err
	}
	return Inference{Prediction: resp.Prediction, Probabilities: resp.Probabilities}, nil
}

func (rt *ONNXRuntime) artifacts(id mission.ID) (Artifacts, error) {
	if !rt.Available() {
		return Artifacts{}, ErrRuntimeNotReady
	}
	a, ok := rt.registry.Artifacts(id)
	if !ok || !a.Ready() {
		return Artifacts{}, fmt.Errorf("%w for %s", ErrArtifactsMissing, id)
	}
	return a, nil
}

func (rt *ONNXRuntime) run(ctx context.Context, mode, modelPath string, input []float64) (*onnxResponse, error) {
	reqJSON, err := json.Marshal(onnxRequest{Features: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, rt.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, rt.pythonPath, rt.scriptPath, mode, modelPath)
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Error().
			Err(err).
			Str("mode", mode).
			Str("model_path", modelPath).
			Str("stderr", stderr.String()).
			Str("stdout", stdout.String()).
			Dur("timeout", rt.timeout).
			Bool("context_cancelled", ctx.Err() != nil).
			Msg("Python inference execution failed")

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timeout after %v: %w", mode, rt.timeout, context.DeadlineExceeded)
		}
		if strings.Contains(stderr.String()+stdout.String(), "onnxruntime not installed") {
			return nil, fmt.Errorf("ONNX runtime dependency missing: %w", err)
		}
		// the script reports its own failures as JSON on stdout before exiting non-zero
		var failed onnxResponse
		if jsonErr := json.Unmarshal(stdout.Bytes(), &failed); jsonErr == nil && failed.Error != "" {
			return nil, fmt.Errorf("python %s failed: %w: %s", mode, err, failed.Error)
		}
		return nil, fmt.Errorf("python %s failed: %w, stderr: %s", mode, err, stderr.String())
	}

	var resp onnxResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w, stdout: %s", mode, err, stdout.String())
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python %s error: %s", mode, resp.Error)
	}
	return &resp, nil
}

func findPython() (string, error) {
	var candidates []string
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		candidates = append(candidates,
			filepath.Join(venv, "bin", "python3"),
			filepath.Join(venv, "bin", "python"),
			filepath.Join(venv, "Scripts", "python.exe"),
		)
	}
	for _, name := range []string{"python3", "python", "python3.12", "python3.11", "python3.10"} {
		if p, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, p)
		}
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		// Verify it's Python 3 with ONNX Runtime
		cmd := exec.Command(p, "-c", "import sys, onnxruntime; print('Python', sys.version)")
		if out, err := cmd.Output(); err == nil && strings.Contains(string(out), "Python 3") {
			return p, nil
		}
	}
	return "", errors.New("no Python 3 with onnxruntime found")
}

// ensureInferenceScript returns a shipped onnx_inference.py next to the models,
// or writes the embedded one.
func ensureInferenceScript(modelsDir string) (string, error) {
	shipped := filepath.Join(modelsDir, common.InferenceScriptFile)
	if fileExists(shipped) {
		return shipped, nil
	}
	path := filepath.Join(modelsDir, common.EmbeddedScriptFile)
	if fileExists(path) {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(inferenceScript), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

const inferenceScript = `#!/usr/bin/env python3
"""ONNX scaler/model runner. Usage: onnx_inference.py <scale|classify> <model_path>"""
import sys
import json

try:
    import numpy as np
    import onnxruntime as ort
except ImportError:
    print(json.dumps({"error": "onnxruntime not installed"}))
    sys.exit(1)


def probabilities(out):
    row = out[0]
    if isinstance(row, dict):
        return [float(row[k]) for k in sorted(row.keys())]
    return [float(x) for x in np.asarray(row).ravel().tolist()]


def main():
    if len(sys.argv) != 3 or sys.argv[1] not in ("scale", "classify"):
        print(json.dumps({"error": "usage: onnx_inference.py <scale|classify> <model_path>"}))
        sys.exit(1)

    mode, model_path = sys.argv[1], sys.argv[2]
    try:
        request = json.load(sys.stdin)
        x = np.array([request["features"]], dtype=np.float32)
        session = ort.InferenceSession(model_path)
        outputs = session.run(None, {session.get_inputs()[0].name: x})

        if mode == "scale":
            print(json.dumps({"scaled": np.asarray(outputs[0][0]).astype(float).tolist()}))
            return

        if len(outputs) >= 2:
            probs = probabilities(outputs[1])
            prediction = int(np.asarray(outputs[0]).ravel()[0])
        else:
            probs = probabilities(outputs[0])
            prediction = int(np.argmax(probs))
        print(json.dumps({"prediction": prediction, "probabilities": probs}))
    except Exception as e:
        print(json.dumps({"error": str(e)}))
        sys.exit(1)


if __name__ == "__main__":
    main()
`
