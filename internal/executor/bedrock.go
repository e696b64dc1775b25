package executor

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/afeldman/ai-runtime/internal/tensor"
	"github.com/afeldman/ai-runtime/internal/types"
)

// bedrockInvoker is the subset of *bedrockruntime.Client this package
// depends on, so tests can inject a fake without a live AWS account.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// bedrockExecutor routes inference to a managed model endpoint via
// Amazon Bedrock, a cloud-hosted backend alongside the local
// onnx/tensorrt/torch/tensorflow executors.
type bedrockExecutor struct {
	client   bedrockInvoker
	modelID  string
	inShape  []int
	outShape []int
}

type tensorPayload struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

func newBedrockExecutor(ctx context.Context, cfg types.ModelConfig) (*bedrockExecutor, error) {
	if cfg.BedrockRegion == "" {
		return nil, fmt.Errorf("executor: bedrock backend requires bedrock.region")
	}
	if cfg.BedrockModelID == "" {
		return nil, fmt.Errorf("executor: bedrock backend requires bedrock.model_id")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.BedrockRegion))
	if err != nil {
		return nil, fmt.Errorf("executor: loading AWS config for bedrock: %w", err)
	}

	var inShape, outShape []int
	if len(cfg.InputShapes) > 0 {
		inShape = cfg.InputShapes[0]
	}
	if len(cfg.OutputShapes) > 0 {
		outShape = cfg.OutputShapes[0]
	}

	return &bedrockExecutor{
		client:   bedrockruntime.NewFromConfig(awsCfg),
		modelID:  cfg.BedrockModelID,
		inShape:  inShape,
		outShape: outShape,
	}, nil
}

func (e *bedrockExecutor) Name() string { return "bedrock" }

func (e *bedrockExecutor) Infer(ctx context.Context, x tensor.Tensor) (tensor.Tensor, error) {
	if e.inShape != nil {
		if err := validateShape("bedrock input", x.Shape, e.inShape); err != nil {
			return tensor.Tensor{}, err
		}
	}

	body, err := json.Marshal(tensorPayload{Shape: x.Shape, Data: x.Data})
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("executor: marshalling bedrock request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		ContentType: strPtr("application/json"),
		Body:        body,
	})
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("executor: bedrock InvokeModel: %w", err)
	}

	var resp tensorPayload
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return tensor.Tensor{}, fmt.Errorf("executor: decoding bedrock response: %w", err)
	}

	result := tensor.New(resp.Shape, resp.Data)
	if e.outShape != nil {
		if err := validateShape("bedrock output", result.Shape, e.outShape); err != nil {
			return tensor.Tensor{}, err
		}
	}
	return result, nil
}

func (e *bedrockExecutor) Close() error { return nil }

func strPtr(s string) *string { return &s }
