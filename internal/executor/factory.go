package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/afeldman/ai-runtime/internal/types"
)

// Create selects an Executor implementation by the backend tag in
// cfg. Unknown tags fail at startup.
func Create(ctx context.Context, cfg types.ModelConfig, deviceID int) (Executor, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "onnx":
		return newReferenceExecutor("onnx", cfg)
	case "torch":
		return newReferenceExecutor("torch", cfg)
	case "tensorflow":
		return newReferenceExecutor("tensorflow", cfg)
	case "tensorrt":
		if strings.ToLower(cfg.Device) != "gpu" {
			return nil, fmt.Errorf("executor: tensorrt backend requires device=\"gpu\", got %q", cfg.Device)
		}
		return newReferenceExecutor("tensorrt", cfg)
	case "bedrock":
		return newBedrockExecutor(ctx, cfg)
	default:
		return nil, fmt.Errorf("executor: unsupported backend %q", cfg.Backend)
	}
}
