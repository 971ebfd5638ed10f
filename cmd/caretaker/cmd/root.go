// Package cmd implements the caretaker CLI commands.
package cmd

import (
	"time"

	"github.com/caretaker-db/caretaker/pkg/cassandra"
	"github.com/caretaker-db/caretaker/pkg/config"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// connectionFlags are shared by every command that talks to the cluster.
// Flags override their config file counterparts when set.
var connectionFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:    "hosts",
		Usage:   "Cassandra contact points (host or host:port)",
		Sources: cli.EnvVars("CARETAKER_HOSTS"),
	},
	&cli.StringFlag{
		Name:    "keyspace",
		Aliases: []string{"k"},
		Usage:   "keyspace to migrate",
		Sources: cli.EnvVars("CARETAKER_KEYSPACE"),
		Config:  cli.StringConfig{TrimSpace: true},
	},
	&cli.StringFlag{
		Name:   "consistency",
		Usage:  "consistency level for migration statements and journal access",
		Config: cli.StringConfig{TrimSpace: true},
	},
}

// loadConfig reads the configured YAML file and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigFile(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if hosts := cmd.StringSlice("hosts"); len(hosts) > 0 {
		cfg.Cassandra.Hosts = hosts
	}
	if keyspace := cmd.String("keyspace"); keyspace != "" {
		cfg.Cassandra.Keyspace = keyspace
	}
	if consistency := cmd.String("consistency"); consistency != "" {
		cfg.Cassandra.Consistency = consistency
	}

	if len(cfg.Cassandra.Hosts) == 0 {
		return nil, errors.New("no Cassandra hosts configured (set cassandra.hosts or --hosts)")
	}
	if cfg.Cassandra.Keyspace == "" {
		return nil, errors.New("no keyspace configured (set cassandra.keyspace or --keyspace)")
	}

	return cfg, nil
}

// connect opens a keyspace-scoped session from the merged configuration.
func connect(cfg *config.Config) (*cassandra.Client, error) {
	opts := cassandra.Options{
		Hosts:       cfg.Cassandra.Hosts,
		Keyspace:    cfg.Cassandra.Keyspace,
		Consistency: cfg.Cassandra.Consistency,
		Timeout:     10 * time.Second,
	}

	if tlsCfg := cfg.Cassandra.TLS; tlsCfg != nil {
		opts.CAFile = tlsCfg.CAFile
		opts.CertFile = tlsCfg.CertFile
		opts.KeyFile = tlsCfg.KeyFile
		opts.HostVerification = tlsCfg.HostVerification
	}

	return cassandra.Connect(opts)
}
