// Package checkpoint reads PyTorch checkpoint files into named tensors ready
// for ONNX serialization. Both the zip archive format and the legacy pickle
// stream that torch.save produces are handled by gopickle; this package
// unwraps the usual state-dict containers and converts storages into
// contiguous little-endian raw data.
package checkpoint
