// Package config loads and validates runtime.toml, the declarative
// configuration file that drives model, queue, sink, and
// observability setup.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/afeldman/ai-runtime/internal/types"
)

// Raw mirrors runtime.toml's on-disk shape. Field tags are lowercase
// snake_case to match TOML keys via viper's mapstructure decoding; it
// is a plain decode target kept separate from the validated domain
// Config.
type Raw struct {
	Model         modelSection         `mapstructure:"model"`
	Input         inputSection         `mapstructure:"input"`
	Queue         queueSection         `mapstructure:"queue"`
	Redis         redisSection         `mapstructure:"redis"`
	Transform     transformSection     `mapstructure:"transform"`
	Observability observabilitySection `mapstructure:"observability"`
	Bedrock       bedrockSection       `mapstructure:"bedrock"`
}

type modelSection struct {
	Backend      string   `mapstructure:"backend"`
	Device       string   `mapstructure:"device"`
	ModelPath    string   `mapstructure:"model_path"`
	GPUIDs       []int    `mapstructure:"gpu_ids"`
	InputNames   []string `mapstructure:"input_names"`
	InputShapes  [][]int  `mapstructure:"input_shapes"`
	OutputNames  []string `mapstructure:"output_names"`
	OutputShapes [][]int  `mapstructure:"output_shapes"`
}

type inputSection struct {
	Batch    int    `mapstructure:"batch"`
	Channels int    `mapstructure:"channels"`
	Height   int    `mapstructure:"height"`
	Width    int    `mapstructure:"width"`
	DType    string `mapstructure:"dtype"`
}

type queueSection struct {
	MaxBatch  int   `mapstructure:"max_batch"`
	MaxWaitMs int64 `mapstructure:"max_wait_ms"`
}

type redisSection struct {
	URL           string `mapstructure:"url"`
	OutPrefix     string `mapstructure:"out_prefix"`
	OutDataCap    int    `mapstructure:"out_data_cap"`
	DialTimeoutMs int    `mapstructure:"dial_timeout_ms"`
	PoolSize      int    `mapstructure:"pool_size"`
}

type transformSection struct {
	PreScript  string `mapstructure:"pre_script"`
	PostScript string `mapstructure:"post_script"`
}

type observabilitySection struct {
	LogLevel     string `mapstructure:"log_level"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type bedrockSection struct {
	Region  string `mapstructure:"region"`
	ModelID string `mapstructure:"model_id"`
}

// Config is the validated, runtime-ready configuration.
type Config struct {
	Model         types.ModelConfig
	Input         types.InputSpec
	Queue         types.QueueConfig
	RedisURL      string
	OutPrefix     string
	OutDataCap    int
	DialTimeoutMs int
	PoolSize      int
	PreScript     string
	PostScript    string
	LogLevel      string
	MetricsAddr   string
	OTLPEndpoint  string
}

var validBackends = map[string]bool{
	"onnx":       true,
	"tensorrt":   true,
	"torch":      true,
	"tensorflow": true,
	"bedrock":    true,
}

// Load reads and validates runtime.toml at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw Raw
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return fromRaw(raw)
}

func fromRaw(raw Raw) (*Config, error) {
	backend := strings.ToLower(strings.TrimSpace(raw.Model.Backend))
	if !validBackends[backend] {
		return nil, fmt.Errorf("config: unrecognised backend %q", raw.Model.Backend)
	}

	device := strings.ToLower(strings.TrimSpace(raw.Model.Device))
	if device != "cpu" && device != "gpu" {
		return nil, fmt.Errorf("config: model.device must be \"cpu\" or \"gpu\", got %q", raw.Model.Device)
	}

	spec := types.InputSpec{
		Batch:    raw.Input.Batch,
		Channels: raw.Input.Channels,
		Height:   raw.Input.Height,
		Width:    raw.Input.Width,
		DType:    types.DType(strings.ToLower(strings.TrimSpace(raw.Input.DType))),
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !spec.DType.Wired() {
		return nil, fmt.Errorf("config: dtype %q is recognised but has no wired data path (only %q is implemented)", spec.DType, types.DTypeF32)
	}

	model := types.ModelConfig{
		Backend:        backend,
		Device:         device,
		ModelPath:      raw.Model.ModelPath,
		GPUIDs:         raw.Model.GPUIDs,
		InputNames:     raw.Model.InputNames,
		InputShapes:    raw.Model.InputShapes,
		OutputNames:    raw.Model.OutputNames,
		OutputShapes:   raw.Model.OutputShapes,
		BedrockRegion:  raw.Bedrock.Region,
		BedrockModelID: raw.Bedrock.ModelID,
	}
	if backend != "bedrock" {
		if err := model.Validate(spec); err != nil {
			return nil, err
		}
	}
	if device == "gpu" && len(model.GPUIDs) == 0 {
		return nil, fmt.Errorf("config: model.device is \"gpu\" but no gpu_ids were configured")
	}

	if raw.Queue.MaxBatch < 1 {
		return nil, fmt.Errorf("config: queue.max_batch must be >= 1, got %d", raw.Queue.MaxBatch)
	}
	if raw.Queue.MaxWaitMs < 0 {
		return nil, fmt.Errorf("config: queue.max_wait_ms must be >= 0, got %d", raw.Queue.MaxWaitMs)
	}
	queue := types.QueueConfig{MaxBatch: raw.Queue.MaxBatch, MaxWaitMs: raw.Queue.MaxWaitMs}

	if raw.Redis.URL == "" {
		return nil, fmt.Errorf("config: redis.url is required")
	}
	if raw.Redis.OutPrefix == "" {
		return nil, fmt.Errorf("config: redis.out_prefix is required")
	}
	outDataCap := raw.Redis.OutDataCap
	if outDataCap <= 0 {
		outDataCap = 256
	}
	dialTimeoutMs := raw.Redis.DialTimeoutMs
	if dialTimeoutMs <= 0 {
		dialTimeoutMs = 5000
	}
	poolSize := raw.Redis.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	return &Config{
		Model:         model,
		Input:         spec,
		Queue:         queue,
		RedisURL:      raw.Redis.URL,
		OutPrefix:     raw.Redis.OutPrefix,
		OutDataCap:    outDataCap,
		DialTimeoutMs: dialTimeoutMs,
		PoolSize:      poolSize,
		PreScript:     raw.Transform.PreScript,
		PostScript:    raw.Transform.PostScript,
		LogLevel:      raw.Observability.LogLevel,
		MetricsAddr:   raw.Observability.MetricsAddr,
		OTLPEndpoint:  raw.Observability.OTLPEndpoint,
	}, nil
}

// WorkerCount returns the number of worker goroutines to spawn: one
// per configured GPU id when device == "gpu", otherwise one.
func (c *Config) WorkerCount() int {
	if c.Model.Device == "gpu" && len(c.Model.GPUIDs) > 0 {
		return len(c.Model.GPUIDs)
	}
	return 1
}

// DeviceForWorker returns the device id a given worker index should
// bind to, or -1 for CPU/no-device workers.
func (c *Config) DeviceForWorker(workerIdx int) int {
	if c.Model.Device == "gpu" && workerIdx < len(c.Model.GPUIDs) {
		return c.Model.GPUIDs[workerIdx]
	}
	return -1
}
