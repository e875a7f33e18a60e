package model

import (
	"context"

	"github.com/harunnryd/vibechat/internal/model/contract"
)

// Client is what the agent loop and completion pipeline depend on.
type Client interface {
	Complete(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Stream(ctx context.Context, req contract.StreamRequest) (contract.DeltaStream, error)
}

type ModelRouter interface {
	Client
	DefaultModel() string
	ListModels() []string
	Health(ctx context.Context) error
}

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Stream(ctx context.Context, req contract.StreamRequest) (contract.DeltaStream, error)
	Name() string
	Type() string
	Health(ctx context.Context) error
}
