// Package export drives the checkpoint-to-ONNX conversion: it locates the
// acoustic model and vocoder checkpoints under the input directory, converts
// each one that is present, copies the auxiliary text assets, and records the
// run in the journal.
//
// A missing checkpoint or asset is a warning and a skip; a failed load or
// serialization is collected and surfaced after the remaining steps have run,
// so one broken model never blocks the asset copy.
package export
