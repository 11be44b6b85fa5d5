package api

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"hotelbook/internal/booking"
	"hotelbook/internal/models"
	"hotelbook/internal/recommend"
)

const (
	engineServiceName = "hotelbook.engine.v1.EngineService"

	methodCheckAvailability  = "/" + engineServiceName + "/CheckAvailability"
	methodComputePrice       = "/" + engineServiceName + "/ComputePrice"
	methodGetRecommendations = "/" + engineServiceName + "/GetRecommendations"
)

// EngineServer is the gRPC face of the engine. Messages are
// google.protobuf.Struct with the same field names as the HTTP JSON.
type EngineServer interface {
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ComputePrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecommendations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var engineServiceDesc = grpc.ServiceDesc{
	ServiceName: engineServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: unaryHandler(methodCheckAvailability, EngineServer.CheckAvailability)},
		{MethodName: "ComputePrice", Handler: unaryHandler(methodComputePrice, EngineServer.ComputePrice)},
		{MethodName: "GetRecommendations", Handler: unaryHandler(methodGetRecommendations, EngineServer.GetRecommendations)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hotelbook/engine/v1/engine.proto",
}

// RegisterEngineServer registers srv on s.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&engineServiceDesc, srv)
}

type engineCall func(EngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call engineCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// EngineService implements EngineServer on top of the services.
type EngineService struct {
	svc Services
}

func NewEngineService(svc Services) *EngineService {
	return &EngineService{svc: svc}
}

func (s *EngineService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resourceID := field(req, "resource_id").GetStringValue()
	if resourceID == "" {
		return nil, status.Error(codes.InvalidArgument, "resource_id is required")
	}
	window, err := parseWindow(field(req, "start").GetStringValue(), field(req, "end").GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}

	verdict := s.svc.Availability.CheckAvailability(ctx, resourceID, window, field(req, "exclude_id").GetStringValue())
	return toStruct(verdict)
}

func (s *EngineService) ComputePrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	window, err := parseWindow(field(req, "start").GetStringValue(), field(req, "end").GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}

	rateValue := field(req, "rate")
	resourceID := field(req, "resource_id").GetStringValue()
	if resourceID == "" && rateValue == nil {
		return nil, grpcError(fieldErr("rate", "required", "rate or resource_id is required"))
	}
	if _, ok := rateValue.GetKind().(*structpb.Value_NumberValue); rateValue != nil && !ok {
		return nil, grpcError(fieldErr("rate", "numeric", "rate must be a number"))
	}

	rate := rateValue.GetNumberValue()
	if resourceID != "" {
		res, err := s.svc.Catalog.GetResource(ctx, resourceID)
		if err != nil {
			return nil, grpcError(err)
		}
		rate = res.BasePrice
	}
	if rate < 0 {
		return nil, status.Error(codes.InvalidArgument, "rate must not be negative")
	}

	return toStruct(booking.ComputePrice(rate, window.Start, window.End))
}

func (s *EngineService) GetRecommendations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := field(req, "user_id").GetStringValue()
	r := recommend.Request{
		Context: models.RecommendationContext{
			Kind:        field(req, "kind").GetStringValue(),
			Occasion:    field(req, "occasion").GetStringValue(),
			PartySize:   int(field(req, "party_size").GetNumberValue()),
			TimeSlot:    field(req, "time_slot").GetStringValue(),
			ResultCount: int(field(req, "result_count").GetNumberValue()),
		},
		UserID:        userID,
		Authenticated: userID != "",
		UseCache:      true,
	}
	if v, ok := req.GetFields()["use_cache"]; ok {
		r.UseCache = v.GetBoolValue()
	}

	result, err := s.svc.Recommendations.Recommend(ctx, r)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(result)
}

// field returns the named value or nil; getters on a nil *structpb.Value
// return zero values.
func field(s *structpb.Struct, name string) *structpb.Value {
	return s.GetFields()[name]
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func grpcError(err error) error {
	switch classify(err) {
	case kindInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case kindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case kindConflict:
		return status.Error(codes.FailedPrecondition, err.Error())
	case kindUnavailable:
		return status.Error(codes.Unavailable, unavailableMessage(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
