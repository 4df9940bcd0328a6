package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// ExtractorClient calls the external extraction service.
type ExtractorClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewExtractorClient connects to the extraction gRPC server.
func NewExtractorClient(addr string) (*ExtractorClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &ExtractorClient{conn: conn, cc: conn}, nil
}

// NewExtractorClientWithConn creates a client over an existing connection.
// The caller keeps ownership of cc.
func NewExtractorClientWithConn(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client opened it.
func (c *ExtractorClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region extract
// Extract sends the fact text and returns the labels found in it.
func (c *ExtractorClient) Extract(ctx context.Context, caseID, fact string) ([]string, error) {
	req, err := structpb.NewStruct(map[string]any{"id": caseID, "fact": fact})
	if err != nil {
		return nil, fmt.Errorf("extract request: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractMethod, req, resp); err != nil {
		return nil, fmt.Errorf("extract rpc: %w", err)
	}
	return labelsOf(resp)
}

// #endregion extract

// #region decode
func labelsOf(resp *structpb.Struct) ([]string, error) {
	v, ok := resp.GetFields()["labels"]
	if !ok {
		return nil, fmt.Errorf("extract response: missing labels")
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("extract response: labels is not a list")
	}
	out := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("extract response: label %d is not a string", i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

// #endregion decode
