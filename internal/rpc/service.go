// Package rpc declares the journal's gRPC service.
//
// Every method takes and returns a google.protobuf.Struct. The Go request and
// response types in this package are mapped onto those structs with protojson,
// so the service needs no generated stubs. Servers implement Handler and
// register it with RegisterHandler; clients call Invoke.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "migrainelog.v1.Journal"

const (
	MethodPing         = "Ping"
	MethodRegister     = "Register"
	MethodGetSalt      = "GetSalt"
	MethodLogin        = "Login"
	MethodRefreshToken = "RefreshToken"

	MethodInitUser           = "InitUser"
	MethodAddEntry           = "AddEntry"
	MethodUpdateEntry        = "UpdateEntry"
	MethodDeleteEntry        = "DeleteEntry"
	MethodGetEntry           = "GetEntry"
	MethodListEntries        = "ListEntries"
	MethodListEntriesInRange = "ListEntriesInRange"
	MethodGetPreferences     = "GetPreferences"
	MethodSetPreferences     = "SetPreferences"
	MethodPresignBackup      = "PresignBackup"
)

// Methods lists every method the service exposes.
var Methods = []string{
	MethodPing,
	MethodRegister,
	MethodGetSalt,
	MethodLogin,
	MethodRefreshToken,
	MethodInitUser,
	MethodAddEntry,
	MethodUpdateEntry,
	MethodDeleteEntry,
	MethodGetEntry,
	MethodListEntries,
	MethodListEntriesInRange,
	MethodGetPreferences,
	MethodSetPreferences,
	MethodPresignBackup,
}

// PublicMethods do not require an access token.
var PublicMethods = map[string]bool{
	MethodPing:         true,
	MethodRegister:     true,
	MethodGetSalt:      true,
	MethodLogin:        true,
	MethodRefreshToken: true,
}

// FullMethod returns the gRPC path for method, e.g. "/migrainelog.v1.Journal/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// MethodName is the inverse of FullMethod.
func MethodName(fullMethod string) string {
	prefix := "/" + ServiceName + "/"
	if len(fullMethod) > len(prefix) && fullMethod[:len(prefix)] == prefix {
		return fullMethod[len(prefix):]
	}
	return fullMethod
}

// Handler serves one call of the named method.
type Handler interface {
	Handle(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(Handler)
		if interceptor == nil {
			return h.Handle(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return h.Handle(ctx, method, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
func ServiceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Handler)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "migrainelog/v1/journal",
	}
	for _, m := range Methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: m, Handler: unaryHandler(m)})
	}
	return desc
}

func RegisterHandler(s grpc.ServiceRegistrar, h Handler) {
	s.RegisterService(ServiceDesc(), h)
}

// Invoke encodes req, calls method on cc and decodes the reply into resp.
// resp may be nil when the reply carries nothing of interest.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return Decode(out, resp)
}
