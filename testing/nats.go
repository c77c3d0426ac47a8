package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/FrancoYudica/DistributedFractals/internal/natsutil"
)

// StartEmbeddedNATS starts an in-process NATS server with JetStream for one
// test and connects a client to it.
//
// The server listens on a random port and keeps JetStream data in t.TempDir().
// Both the connection and the server are shut down by t.Cleanup.
//
// Parameters:
//   - t: Testing context for logging and cleanup
//
// Returns:
//   - *server.Server: The embedded server, for ClientURL or extra connections
//   - *nats.Conn: Connected client
//
// Example:
//
//	func TestWorker(t *testing.T) {
//	    ns, nc := fractaltest.StartEmbeddedNATS(t)
//	    other := fractaltest.Connect(t, ns)
//	}
func StartEmbeddedNATS(t testing.TB) (*server.Server, *nats.Conn) {
	t.Helper()

	ns, err := natsutil.StartServer(natsutil.ServerConfig{
		Port:     -1,
		StoreDir: t.TempDir(),
		Quiet:    true,
	})
	if err != nil {
		t.Fatalf("Failed to start embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, Connect(t, ns)
}

// Connect opens another client connection to ns, closed by t.Cleanup.
//
// Separate connections model separate processes: a coordinator and each
// worker normally have their own.
func Connect(t testing.TB, ns *server.Server) *nats.Conn {
	t.Helper()

	nc, err := nats.Connect(ns.ClientURL(),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
	)
	if err != nil {
		t.Fatalf("Failed to connect to embedded NATS server: %v", err)
	}
	t.Cleanup(nc.Close)

	return nc
}

// CreateJetStreamKV creates a memory-backed KV bucket for a test.
//
// Example:
//
//	_, nc := fractaltest.StartEmbeddedNATS(t)
//	kv := fractaltest.CreateJetStreamKV(t, nc, "fractals-workers")
func CreateJetStreamKV(t testing.TB, nc *nats.Conn, bucketName string) jetstream.KeyValue {
	t.Helper()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("Failed to get JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(t.Context(), jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Test KV bucket: %s", bucketName),
		TTL:         time.Minute,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
	})
	if err != nil {
		t.Fatalf("Failed to create KV bucket %s: %v", bucketName, err)
	}

	return kv
}
