// Package rpc is the binary call protocol between the gateway and the catalog
// services.
//
// Each kind is a gRPC service named after its catalog schema
// (book.BookService, magazine.MagazineService, audiovisual.AudiovisualService)
// with five unary methods. Messages are encoded in protobuf wire format by a
// codec registered under CodecName; the service descriptors are built from the
// schema rather than generated.
//
// Failures cross the wire as gRPC status codes: NotFound for absence,
// InvalidArgument for malformed requests and Internal with a fixed message for
// every fault. FromStatus turns them back into classified errors on the caller.
package rpc
