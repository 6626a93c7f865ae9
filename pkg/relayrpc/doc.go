// Package relayrpc defines the producer-facing gRPC contract shared by the
// heartrelay server and the producer agent.
//
// The service is declared by hand rather than generated from a .proto file:
// messages are plain Go structs carried by a JSON codec registered under the
// "json" content-subtype.
//
//	service heartrelay.v1.Ingress {
//	  rpc Submit(SubmitRequest) returns (SubmitResponse);
//	}
//
// Clients must call with grpc.CallContentSubtype(ContentSubtype); the client
// returned by NewIngressClient does this automatically.
package relayrpc
