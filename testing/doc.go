// Package testing provides test helpers for code built on the fractals
// packages, in the spirit of net/http/httptest.
//
// Key utilities:
//   - StartEmbeddedNATS: In-process NATS server with JetStream
//   - CreateJetStreamKV: Memory-backed KV bucket for a test
//   - NewTestLogger: Logger that writes through testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    fractaltest "github.com/FrancoYudica/DistributedFractals/testing"
//	)
//
//	func TestNATSRender(t *testing.T) {
//	    _, nc := fractaltest.StartEmbeddedNATS(t)
//	    // render through nc
//	}
package testing
