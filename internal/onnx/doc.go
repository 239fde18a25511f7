// Package onnx models the subset of the ONNX protobuf schema that the
// converter emits: a ModelProto with opset imports, producer metadata, and a
// GraphProto carrying value infos (with dim_param dynamic axes), nodes, and
// weight initializers.
//
// The wire format is produced directly with protowire against the field
// numbers of onnx.proto. The ONNX project does not publish importable Go
// bindings, and the handful of messages needed here is small enough that
// hand-encoding stays readable. Encoding is deterministic: the same Model
// always serializes to the same bytes, which is what makes re-exports
// byte-identical.
package onnx
