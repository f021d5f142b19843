package model

import (
	"context"
	"errors"
	"strings"

	"github.com/stellarlinkco/mltrack/internal/dataset"
)

// URI schemes understood by the evaluation entry point.
const (
	modelURIPrefix    = "models:/"
	endpointURIPrefix = "endpoints:/"
)

// IsModelURI reports whether s names a registered model.
func IsModelURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), modelURIPrefix)
}

// IsDeploymentEndpointURI reports whether s names a deployment endpoint.
func IsDeploymentEndpointURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), endpointURIPrefix)
}

// Loader resolves a model URI into a runnable model. Implementations may
// start a serving subprocess; the returned model's Stop must always be
// called when evaluation ends.
type Loader interface {
	Load(ctx context.Context, uri string) (*Served, error)
}

// PredictFunc adapts a plain function to the predictor contract.
type PredictFunc func(ctx context.Context, features *dataset.Table) ([]any, error)

func (f PredictFunc) Predict(ctx context.Context, features *dataset.Table) ([]any, error) {
	if f == nil {
		return nil, errors.New("model: nil predict func")
	}
	return f(ctx, features)
}
