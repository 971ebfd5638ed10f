// Package config loads caretaker project configuration from YAML.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConsistency is applied when no consistency level is set.
	DefaultConsistency = "quorum"

	// DefaultDir is where migration scripts live unless configured.
	DefaultDir = "db/migrations"
)

type (
	// TLS holds certificate paths for connecting to Cassandra over TLS
	// or mTLS.
	TLS struct {
		// CAFile is the certificate authority PEM file.
		CAFile string `yaml:"ca_file,omitempty"`

		// CertFile is the client certificate public key file.
		CertFile string `yaml:"cert_file,omitempty"`

		// KeyFile is the client certificate private key file.
		KeyFile string `yaml:"key_file,omitempty"`

		// HostVerification enables server certificate hostname checks.
		HostVerification bool `yaml:"host_verification,omitempty"`
	}

	// Cassandra holds connection settings for the target cluster.
	Cassandra struct {
		// Hosts are the cluster contact points ("host" or "host:port").
		Hosts []string `yaml:"hosts"`

		// Keyspace is the keyspace whose schema is managed. It must
		// already exist; caretaker does not provision keyspaces.
		Keyspace string `yaml:"keyspace"`

		// Consistency is the level used for migration statements and
		// journal reads/writes. Defaults to quorum.
		Consistency string `yaml:"consistency,omitempty"`

		// TLS enables encrypted connections when present.
		TLS *TLS `yaml:"tls,omitempty"`
	}

	// Config is the project configuration for keyspace migration.
	Config struct {
		// Cassandra contains cluster connection settings.
		Cassandra Cassandra `yaml:"cassandra"`

		// Dir is the directory containing migration scripts.
		Dir string `yaml:"dir"`

		// TablePrefix namespaces the journal and lease tables.
		TablePrefix string `yaml:"table_prefix,omitempty"`

		// Consensus enables the distributed migration lease so that only
		// one process migrates at a time.
		Consensus bool `yaml:"consensus,omitempty"`

		// FailGracefully makes a failing migration log a warning and
		// continue with the rest of the batch instead of aborting.
		FailGracefully bool `yaml:"fail_gracefully,omitempty"`

		// LeaseTTL bounds how long a crashed lease holder blocks other
		// processes. Defaults to 5m.
		LeaseTTL Duration `yaml:"lease_ttl,omitempty"`
	}

	// Duration is a time.Duration that unmarshals from YAML strings like
	// "90s" or "5m".
	Duration time.Duration
)

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration: %s", s)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back to its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LoadConfig parses a caretaker configuration from the provided reader
// and fills in defaults for unset fields.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(`
//	cassandra:
//	  hosts: [localhost:9042]
//	  keyspace: app
//	dir: db/migrations
//	consensus: true
//	`))
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal caretaker config")
	}

	if cfg.Cassandra.Consistency == "" {
		cfg.Cassandra.Consistency = DefaultConsistency
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = Duration(5 * time.Minute)
	}

	return &cfg, nil
}

// LoadConfigFile loads a configuration from the specified file path.
// Convenience wrapper around LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}
