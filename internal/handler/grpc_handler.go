package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-quote-approvals/internal/errors"
	"github.com/pesio-ai/be-quote-approvals/internal/logger"
	"github.com/pesio-ai/be-quote-approvals/internal/service"
)

// ApprovalPreviewServiceName is the fully qualified gRPC service name.
const ApprovalPreviewServiceName = "quoteapprovals.v1.ApprovalPreviewService"

// ApprovalPreviewServer is the gRPC surface of the approval preview. Requests
// and responses are google.protobuf.Struct values holding the same JSON shapes
// the HTTP API returns.
type ApprovalPreviewServer interface {
	GetApprovalMatrix(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetApprovalTable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterApprovalPreviewServer registers srv on s.
func RegisterApprovalPreviewServer(s grpc.ServiceRegistrar, srv ApprovalPreviewServer) {
	s.RegisterService(&approvalPreviewServiceDesc, srv)
}

var approvalPreviewServiceDesc = grpc.ServiceDesc{
	ServiceName: ApprovalPreviewServiceName,
	HandlerType: (*ApprovalPreviewServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetApprovalMatrix", Handler: unaryHandler("GetApprovalMatrix", ApprovalPreviewServer.GetApprovalMatrix)},
		{MethodName: "GetApprovalTable", Handler: unaryHandler("GetApprovalTable", ApprovalPreviewServer.GetApprovalTable)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quoteapprovals/v1/approval_preview.proto",
}

func unaryHandler(
	method string,
	call func(ApprovalPreviewServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) grpc.MethodHandler {
	fullMethod := "/" + ApprovalPreviewServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ApprovalPreviewServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ApprovalPreviewServer), ctx, req.(*structpb.Struct))
		})
	}
}

// GRPCHandler implements ApprovalPreviewServer
type GRPCHandler struct {
	boards  *service.Boards
	preview *service.ApprovalPreviewService
	log     *logger.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(boards *service.Boards, preview *service.ApprovalPreviewService, log *logger.Logger) *GRPCHandler {
	return &GRPCHandler{
		boards:  boards,
		preview: preview,
		log:     log.Component("grpc"),
	}
}

// GetApprovalMatrix reloads the quote's board. A load superseded by a newer
// one still answers with the current state.
func (h *GRPCHandler) GetApprovalMatrix(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	quoteID := strings.TrimSpace(stringField(req, "quote_id"))

	state, err := h.boards.Reload(ctx, quoteID)
	if err != nil && !stderrors.Is(err, service.ErrSuperseded) {
		return nil, mapErrorToGRPC(err)
	}
	return toStruct(state)
}

// GetApprovalTable builds the grouped table.
func (h *GRPCHandler) GetApprovalTable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	view, err := h.preview.LoadTable(ctx, &service.TableRequest{
		QuoteID:      stringField(req, "quote_id"),
		FlowData:     stringField(req, "flow_data"),
		MaxLevel:     intField(req, "max_level"),
		DividerLevel: intField(req, "divider_level"),
	})
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return toStruct(view)
}

func stringField(s *structpb.Struct, name string) string {
	v, ok := s.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func intField(s *structpb.Struct, name string) int {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0
	}
	n := v.GetNumberValue()
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// toStruct converts a JSON-tagged view into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func mapErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		return status.Error(codes.NotFound, msg)
	case errors.ErrCodeInvalidInput:
		return status.Error(codes.InvalidArgument, msg)
	case errors.ErrCodeConfiguration:
		return status.Error(codes.FailedPrecondition, msg)
	case errors.ErrCodeRemoteFetch, errors.ErrCodeUnavailable:
		return status.Error(codes.Unavailable, msg)
	default:
		if stderrors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, msg)
		}
		return status.Error(codes.Internal, msg)
	}
}
