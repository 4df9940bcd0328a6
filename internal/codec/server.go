package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

// #region service-descs
var sentencerDesc = grpc.ServiceDesc{
	ServiceName: "sentencing.v1.Sentencer",
	HandlerType: (*predictHandler)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Predict",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return srv.(predictHandler).Predict(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PredictMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return srv.(predictHandler).Predict(ctx, req.(*structpb.Struct))
			})
		},
	}},
	Metadata: "sentencing/v1/sentencing.proto",
}

var extractorDesc = grpc.ServiceDesc{
	ServiceName: "sentencing.v1.Extractor",
	HandlerType: (*extractHandler)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Extract",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return srv.(extractHandler).Extract(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return srv.(extractHandler).Extract(ctx, req.(*structpb.Struct))
			})
		},
	}},
	Metadata: "sentencing/v1/sentencing.proto",
}

// #endregion service-descs

// #region server
// Server serves Predict over gRPC.
type Server struct {
	engine    *engine.Engine
	parser    *labels.Parser
	extractor Extractor
	logger    *zap.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithExtractor lets the server extract labels for requests that carry only
// fact text.
func WithExtractor(x Extractor) ServerOption {
	return func(s *Server) { s.extractor = x }
}

// WithServerLogger sets the request logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a Predict server backed by the engine.
func NewServer(e *engine.Engine, p *labels.Parser, opts ...ServerOption) *Server {
	s := &Server{engine: e, parser: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the Sentencer service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&sentencerDesc, s)
}

// Predict decodes a case, runs the engine, and encodes the output contract.
func (s *Server) Predict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var c labels.Case
	if err := fromStruct(req, &c); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode case: %v", err)
	}

	if c.NeedsExtraction() {
		if s.extractor == nil {
			return nil, status.Errorf(codes.FailedPrecondition, "case %s has only fact text and no extractor is configured", c.ID)
		}
		found, err := s.extractor.Extract(ctx, c.ID, c.Fact)
		if err != nil {
			return nil, status.Errorf(codes.Unavailable, "extract %s: %v", c.ID, err)
		}
		c.Labels = found
	}

	r, err := s.engine.Predict(s.parser.Input(c))
	if errors.Is(err, rules.ErrUnknownCrimeType) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	s.logger.Info("predict",
		zap.String("case_id", c.ID),
		zap.String("crime_type", r.CrimeType),
		zap.String("interval", r.Interval.String()),
		zap.Float64("confidence", r.Confidence))

	return toStruct(PredictResponse{ID: c.ID, Output: r.Output(), Issues: r.Issues})
}

// #endregion server

// #region extractor-server
type extractorService struct {
	x Extractor
}

// RegisterExtractor serves x as the Extractor service on r.
func RegisterExtractor(r grpc.ServiceRegistrar, x Extractor) {
	r.RegisterService(&extractorDesc, &extractorService{x: x})
}

func (e *extractorService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	found, err := e.x.Extract(ctx, fields["id"].GetStringValue(), fields["fact"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	items := make([]any, len(found))
	for i, l := range found {
		items[i] = l
	}
	return structpb.NewStruct(map[string]any{"labels": items})
}

// #endregion extractor-server

// #region sentencer-client
// SentencerClient calls a remote Predict server.
type SentencerClient struct {
	cc grpc.ClientConnInterface
}

// NewSentencerClient creates a client over an existing connection.
func NewSentencerClient(cc grpc.ClientConnInterface) *SentencerClient {
	return &SentencerClient{cc: cc}
}

// Predict sends one case and decodes the reply.
func (c *SentencerClient) Predict(ctx context.Context, in labels.Case) (PredictResponse, error) {
	req, err := toStruct(in)
	if err != nil {
		return PredictResponse{}, err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PredictMethod, req, resp); err != nil {
		return PredictResponse{}, fmt.Errorf("predict rpc: %w", err)
	}
	var out PredictResponse
	if err := fromStruct(resp, &out); err != nil {
		return PredictResponse{}, fmt.Errorf("predict response: %w", err)
	}
	return out, nil
}

// #endregion sentencer-client

// #region convert
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// #endregion convert
