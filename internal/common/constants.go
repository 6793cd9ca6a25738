package common

import "time"

// Mission identifiers
const (
	MissionKepler = "kepler"
	MissionK2     = "k2"
	MissionTESS   = "tess"
)

// Class labels, indexed by class index
const (
	LabelCandidate     = "Candidate"
	LabelConfirmed     = "Confirmed"
	LabelFalsePositive = "False_Positive"
)

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvLogLevel          = "LOG_LEVEL"
	EnvDataPath          = "DATA_PATH"
	EnvModelsDir         = "MODELS_DIR"
	EnvRuntime           = "INFERENCE_RUNTIME"
	EnvRemoteURL         = "INFERENCE_URL"
	EnvInferenceTimeout  = "INFERENCE_TIMEOUT"
	EnvRemoteMaxRetries  = "INFERENCE_MAX_RETRIES"
	EnvRemoteRPS         = "INFERENCE_RPS"
	EnvListenPort        = "LISTEN_PORT"
	EnvRequestsPerSecond = "REQUESTS_PER_SECOND"
	EnvRequestBurst      = "REQUEST_BURST"
	EnvDelayMin          = "SIMULATED_DELAY_MIN"
	EnvDelayMax          = "SIMULATED_DELAY_MAX"
	EnvPythonPath        = "PYTHON_PATH"
)

// Inference runtime kinds
const (
	RuntimeNone   = "none"
	RuntimeONNX   = "onnx"
	RuntimeRemote = "remote"
)

// Configuration defaults
const (
	DefaultModelsDir         = "models"
	DefaultRuntime           = RuntimeONNX
	DefaultRemoteURL         = "http://localhost:8500"
	DefaultListenPort        = 8080
	DefaultRequestsPerSecond = 20.0
	DefaultRequestBurst      = 40
	DefaultRemoteMaxRetries  = 3
	DefaultRemoteRPS         = 10.0
	DefaultLogLevel          = "info"
	DefaultInferenceTimeout  = 5 * time.Second
	DefaultDelayMin          = 1500 * time.Millisecond
	DefaultDelayMax          = 2500 * time.Millisecond
)

// Model artifact file names inside a mission directory
const (
	ScalerFile          = "scaler.onnx"
	ModelFile           = "model.onnx"
	MetadataFile        = "model_metadata.json"
	ResultsFilePattern  = "model_results*.json"
	PerformanceSummary  = "model_performance_summary.json"
	EmbeddedScriptFile  = "onnx_inference_embedded.py"
	InferenceScriptFile = "onnx_inference.py"
)

// Common error messages
const (
	ErrMsgUnknownRuntime = "unknown inference runtime"
	ErrMsgRemoteURL      = "remote inference URL is required for the remote runtime"
)

// Validation constants
const (
	MinListenPort   = 1024
	MaxListenPort   = 65535
	MaxRequestBurst = 10000
	MaxDelay        = 30 * time.Second
	MaxRemoteRetry  = 10
)
