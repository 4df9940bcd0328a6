package codec

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/sentencing-engine/internal/diagnostics"
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
)

// #region methods
// Full method names. Both services exchange google.protobuf.Struct messages
// so neither side needs generated stubs.
const (
	ExtractMethod = "/sentencing.v1.Extractor/Extract"
	PredictMethod = "/sentencing.v1.Sentencer/Predict"
)

// #endregion methods

// #region extractor
// Extractor turns free case text into extraction labels.
type Extractor interface {
	Extract(ctx context.Context, caseID, fact string) ([]string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, caseID, fact string) ([]string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, caseID, fact string) ([]string, error) {
	return f(ctx, caseID, fact)
}

// #endregion extractor

// #region handlers
type extractHandler interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type predictHandler interface {
	Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// #endregion handlers

// #region messages
// PredictResponse is the JSON body of a Predict reply.
type PredictResponse struct {
	ID string `json:"id"`
	engine.Output
	Issues []diagnostics.Issue `json:"issues,omitempty"`
}

// #endregion messages
