package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-quote-approvals/internal/logger"
)

func dialPreview(t *testing.T, src *fakeSource) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	boards, svc, _ := newTestServices(src)
	log := logger.Nop()

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryRecovery(log), UnaryLogging(log)))
	RegisterApprovalPreviewServer(srv, NewGRPCHandler(boards, svc, log))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	err = conn.Invoke(ctx, "/"+ApprovalPreviewServiceName+"/"+method, in, out, opts...)
	return out, err
}

func TestGRPC_GetApprovalMatrix(t *testing.T) {
	conn := dialPreview(t, testSource())

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), requestIDMetadataKey, "req-42")
	out, err := invoke(ctx, conn, "GetApprovalMatrix", map[string]any{"quote_id": "Q-1"}, grpc.Header(&header))
	require.NoError(t, err)

	assert.Equal(t, []string{"req-42"}, header.Get(requestIDMetadataKey))
	fields := out.AsMap()
	assert.Equal(t, "Q-1", fields["quoteId"])
	matrix := fields["matrix"].(map[string]any)
	assert.Len(t, matrix["chains"], 2)
	assert.Equal(t, []any{float64(1), float64(2)}, matrix["levels"])
}

func TestGRPC_GetApprovalMatrix_MissingQuoteID(t *testing.T) {
	conn := dialPreview(t, testSource())

	_, err := invoke(context.Background(), conn, "GetApprovalMatrix", map[string]any{})

	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "Quote ID is required")
}

func TestGRPC_GetApprovalTable(t *testing.T) {
	conn := dialPreview(t, testSource())

	out, err := invoke(context.Background(), conn, "GetApprovalTable", map[string]any{
		"quote_id":      "Q-1",
		"max_level":     3,
		"divider_level": 2,
	})
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, float64(3), fields["maxLevel"])
	chains := fields["chains"].([]any)
	require.Len(t, chains, 2)
	assert.Len(t, chains[0].(map[string]any)["levels"], 3)
}

func TestMapErrorToGRPC(t *testing.T) {
	assert.Nil(t, mapErrorToGRPC(nil))
	assert.Equal(t, codes.Internal, status.Code(mapErrorToGRPC(assert.AnError)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(mapErrorToGRPC(context.DeadlineExceeded)))
}
