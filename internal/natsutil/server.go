package natsutil

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ServerConfig configures an in-process NATS server.
type ServerConfig struct {
	// Host to listen on, "127.0.0.1" if empty.
	Host string

	// Port to listen on, -1 picks a random free port.
	Port int

	// StoreDir holds JetStream data. Required.
	StoreDir string

	// Quiet suppresses the server's own log output.
	Quiet bool

	// ReadyTimeout bounds the wait for the server to accept clients (5s if zero).
	ReadyTimeout time.Duration
}

// StartServer runs a JetStream-enabled NATS server in the current process and
// waits until it accepts connections.
//
// Returns:
//   - *server.Server: Running server; call Shutdown and WaitForShutdown to stop it
//   - error: If the server cannot be created or does not become ready in time
func StartServer(cfg ServerConfig) (*server.Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}

	opts := &server.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		JetStream: true,
		StoreDir:  cfg.StoreDir,
		NoLog:     cfg.Quiet,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	if !cfg.Quiet {
		ns.ConfigureLogger()
	}

	go ns.Start()

	if !ns.ReadyForConnections(cfg.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within %s", cfg.ReadyTimeout)
	}

	return ns, nil
}
