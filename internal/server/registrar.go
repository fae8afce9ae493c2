package server

import "google.golang.org/grpc"

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// Named is implemented by registrars whose service should appear on the
// health service under its full name.
type Named interface {
	Name() string
}
