package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/lootsheet/internal/core/domain"
	"github.com/rl1809/lootsheet/internal/core/service"
)

// Codec carries gRPC messages as JSON, so the mediator service needs no
// generated code. Clients select it with grpc.ForceCodec(Codec{}).
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (Codec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(Codec{})
}

const submitMethod = "/lootsheet.Mediator/Submit"

type SubmitResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RequestID       string `json:"requestId,omitempty"`
	AuthorityUserID string `json:"authorityUserId,omitempty"`
}

// MediatorServer accepts transfer requests over gRPC.
type MediatorServer interface {
	Submit(ctx context.Context, req *domain.Request) (*SubmitResponse, error)
}

var mediatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "lootsheet.Mediator",
	HandlerType: (*MediatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lootsheet/mediator",
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(domain.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediatorServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MediatorServer).Submit(ctx, req.(*domain.Request))
	}
	return interceptor(ctx, in, info, handler)
}

func RegisterMediatorServer(s grpc.ServiceRegistrar, srv MediatorServer) {
	s.RegisterService(&mediatorServiceDesc, srv)
}

type GRPCHandler struct {
	requester Submitter
	logger    *zap.Logger
}

func NewGRPCHandler(requester Submitter, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{requester: requester, logger: logger}
}

func (h *GRPCHandler) Submit(ctx context.Context, req *domain.Request) (*SubmitResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "empty request")
	}
	sent, err := h.requester.Submit(ctx, *req)
	if err != nil {
		code := service.GetCode(err)
		if e, ok := asServiceError(err); ok {
			return nil, status.Error(code.GRPCCode(), e.Reason)
		}
		h.logger.Error("submit failed", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &SubmitResponse{
		Success:         true,
		Message:         "request dispatched",
		RequestID:       sent.ID,
		AuthorityUserID: sent.AuthorityUserID,
	}, nil
}

// MediatorClient calls a remote mediator.
type MediatorClient struct {
	cc grpc.ClientConnInterface
}

func NewMediatorClient(cc grpc.ClientConnInterface) *MediatorClient {
	return &MediatorClient{cc: cc}
}

func (c *MediatorClient) Submit(ctx context.Context, req domain.Request, opts ...grpc.CallOption) (*SubmitResponse, error) {
	out := new(SubmitResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, submitMethod, &req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func asServiceError(err error) (*service.Error, bool) {
	var e *service.Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
