// Package api is the wire contract of event.v1.EventService: message types,
// their protobuf encoding and the gRPC service description. api/event.proto
// at the repository root is the matching schema.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "event.v1.EventService"

// FullMethod returns the gRPC path of an RPC, e.g. "/event.v1.EventService/CreateEvent".
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

type EventServiceServer interface {
	IssueToken(context.Context, *IssueTokenRequest) (*IssueTokenResponse, error)
	UpsertUser(context.Context, *UpsertUserRequest) (*UpsertUserResponse, error)
	ResolveUsers(context.Context, *ResolveUsersRequest) (*ResolveUsersResponse, error)
	GetTimezone(context.Context, *GetTimezoneRequest) (*Timezone, error)
	SetTimezone(context.Context, *Timezone) (*Timezone, error)
	CreateEvent(context.Context, *CreateEventRequest) (*EventResult, error)
	UpdateEvent(context.Context, *UpdateEventRequest) (*EventResult, error)
	DeleteEvent(context.Context, *EventID) (*DeleteEventResponse, error)
	GetEvent(context.Context, *EventID) (*GetEventResponse, error)
	ListEvents(context.Context, *Empty) (*ListEventsResponse, error)
	ClaimReminders(context.Context, *Empty) (*ClaimRemindersResponse, error)
	AckReminder(context.Context, *AckReminderRequest) (*AckReminderResponse, error)
}

func RegisterEventServiceServer(s grpc.ServiceRegistrar, srv EventServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("IssueToken", func() *IssueTokenRequest { return &IssueTokenRequest{} }, EventServiceServer.IssueToken),
		unary("UpsertUser", func() *UpsertUserRequest { return &UpsertUserRequest{} }, EventServiceServer.UpsertUser),
		unary("ResolveUsers", func() *ResolveUsersRequest { return &ResolveUsersRequest{} }, EventServiceServer.ResolveUsers),
		unary("GetTimezone", func() *GetTimezoneRequest { return &GetTimezoneRequest{} }, EventServiceServer.GetTimezone),
		unary("SetTimezone", func() *Timezone { return &Timezone{} }, EventServiceServer.SetTimezone),
		unary("CreateEvent", func() *CreateEventRequest { return &CreateEventRequest{} }, EventServiceServer.CreateEvent),
		unary("UpdateEvent", func() *UpdateEventRequest { return &UpdateEventRequest{} }, EventServiceServer.UpdateEvent),
		unary("DeleteEvent", func() *EventID { return &EventID{} }, EventServiceServer.DeleteEvent),
		unary("GetEvent", func() *EventID { return &EventID{} }, EventServiceServer.GetEvent),
		unary("ListEvents", func() *Empty { return &Empty{} }, EventServiceServer.ListEvents),
		unary("ClaimReminders", func() *Empty { return &Empty{} }, EventServiceServer.ClaimReminders),
		unary("AckReminder", func() *AckReminderRequest { return &AckReminderRequest{} }, EventServiceServer.AckReminder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/event.proto",
}

func unary[Req Message, Resp Message](name string, newReq func() Req, call func(EventServiceServer, context.Context, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			// grpc reports codec failures as Internal; a bad payload is the caller's fault
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed request")
			}
			s := srv.(EventServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(Req))
			})
		},
	}
}

// EventServiceClient calls the service over any grpc connection, always
// with Codec.
type EventServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEventServiceClient(cc grpc.ClientConnInterface) *EventServiceClient {
	return &EventServiceClient{cc: cc}
}

func invoke[Resp Message](ctx context.Context, cc grpc.ClientConnInterface, name string, in Message, out Resp, opts []grpc.CallOption) (Resp, error) {
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	return out, nil
}

func (c *EventServiceClient) IssueToken(ctx context.Context, in *IssueTokenRequest, opts ...grpc.CallOption) (*IssueTokenResponse, error) {
	return invoke(ctx, c.cc, "IssueToken", in, &IssueTokenResponse{}, opts)
}

func (c *EventServiceClient) UpsertUser(ctx context.Context, in *UpsertUserRequest, opts ...grpc.CallOption) (*UpsertUserResponse, error) {
	return invoke(ctx, c.cc, "UpsertUser", in, &UpsertUserResponse{}, opts)
}

func (c *EventServiceClient) ResolveUsers(ctx context.Context, in *ResolveUsersRequest, opts ...grpc.CallOption) (*ResolveUsersResponse, error) {
	return invoke(ctx, c.cc, "ResolveUsers", in, &ResolveUsersResponse{}, opts)
}

func (c *EventServiceClient) GetTimezone(ctx context.Context, in *GetTimezoneRequest, opts ...grpc.CallOption) (*Timezone, error) {
	return invoke(ctx, c.cc, "GetTimezone", in, &Timezone{}, opts)
}

func (c *EventServiceClient) SetTimezone(ctx context.Context, in *Timezone, opts ...grpc.CallOption) (*Timezone, error) {
	return invoke(ctx, c.cc, "SetTimezone", in, &Timezone{}, opts)
}

func (c *EventServiceClient) CreateEvent(ctx context.Context, in *CreateEventRequest, opts ...grpc.CallOption) (*EventResult, error) {
	return invoke(ctx, c.cc, "CreateEvent", in, &EventResult{}, opts)
}

func (c *EventServiceClient) UpdateEvent(ctx context.Context, in *UpdateEventRequest, opts ...grpc.CallOption) (*EventResult, error) {
	return invoke(ctx, c.cc, "UpdateEvent", in, &EventResult{}, opts)
}

func (c *EventServiceClient) DeleteEvent(ctx context.Context, in *EventID, opts ...grpc.CallOption) (*DeleteEventResponse, error) {
	return invoke(ctx, c.cc, "DeleteEvent", in, &DeleteEventResponse{}, opts)
}

func (c *EventServiceClient) GetEvent(ctx context.Context, in *EventID, opts ...grpc.CallOption) (*GetEventResponse, error) {
	return invoke(ctx, c.cc, "GetEvent", in, &GetEventResponse{}, opts)
}

func (c *EventServiceClient) ListEvents(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke(ctx, c.cc, "ListEvents", in, &ListEventsResponse{}, opts)
}

func (c *EventServiceClient) ClaimReminders(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ClaimRemindersResponse, error) {
	return invoke(ctx, c.cc, "ClaimReminders", in, &ClaimRemindersResponse{}, opts)
}

func (c *EventServiceClient) AckReminder(ctx context.Context, in *AckReminderRequest, opts ...grpc.CallOption) (*AckReminderResponse, error) {
	return invoke(ctx, c.cc, "AckReminder", in, &AckReminderResponse{}, opts)
}
