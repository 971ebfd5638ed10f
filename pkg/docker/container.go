// Package docker manages Cassandra containers for integration testing.
package docker

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/cassandra"
)

// DefaultCassandraVersion is the image tag used when none is specified.
const DefaultCassandraVersion = "4.1"

type (
	// Options represents options for running Cassandra in Docker.
	Options struct {
		// Version is the Cassandra image tag to run (default: 4.1).
		Version string

		// Env holds additional environment variables for the container,
		// e.g. HEAP_NEWSIZE or MAX_HEAP_SIZE to bound memory in CI.
		Env map[string]string
	}

	// Container manages a Cassandra Docker container for migration testing.
	Container struct {
		options   Options
		container *cassandra.CassandraContainer
	}
)

// New creates a new Docker container with default options.
//
// Example:
//
//	container := docker.New()
//
//	if err := container.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer container.Stop(ctx)
func New() *Container {
	return &Container{}
}

// NewWithOptions creates a new Docker container with custom options.
func NewWithOptions(opts Options) *Container {
	return &Container{options: opts}
}

// Start starts a Cassandra Docker container with the configured version.
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	version := c.options.Version
	if version == "" {
		version = DefaultCassandraVersion
	}

	var customizers []testcontainers.ContainerCustomizer
	if len(c.options.Env) > 0 {
		customizers = append(customizers, testcontainers.WithEnv(c.options.Env))
	}

	container, err := cassandra.Run(ctx, fmt.Sprintf("cassandra:%s", version), customizers...)
	if err != nil {
		return errors.Wrap(err, "failed to start Cassandra container")
	}

	c.container = container
	return nil
}

// Stop stops and removes the Cassandra Docker container.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil // Already stopped
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	if err != nil {
		return errors.Wrap(err, "failed to stop Cassandra container")
	}

	return nil
}

// ConnectionHost returns the host:port for connecting to the container's
// CQL native transport.
func (c *Container) ConnectionHost(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	host, err := c.container.ConnectionHost(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection host")
	}

	return host, nil
}

// IsRunning returns true if the container is currently running.
func (c *Container) IsRunning() bool {
	return c.container != nil
}
