package migrator

import (
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Migration is an immutable, versioned unit of schema-change script
	// text. Instances are created by a Repository when enumerating
	// available scripts and live for the duration of one Migrate call.
	Migration struct {
		// Version orders the migration. Versions are positive, strictly
		// increasing and unique within a repository.
		Version int64

		// Name identifies the script for logging and audit records,
		// typically the source file name.
		Name string

		// Script is the raw CQL source. It is split into statements at
		// execution time; the full text is persisted in the journal.
		Script string
	}

	// Repository supplies the migrations available to a Task. Migrations
	// returned by MigrationsSince must be in strictly ascending version
	// order; validating order and gaps is the repository's job, not the
	// engine's.
	Repository interface {
		// LatestVersion returns the highest version the repository knows
		// about, or 0 when it holds no migrations.
		LatestVersion() int64

		// MigrationsSince returns all migrations with a version strictly
		// greater than the given one, ascending.
		MigrationsSince(version int64) []*Migration
	}

	// DirRepository is a Repository backed by a filesystem of CQL scripts
	// named "<version>_<description>.cql" (e.g. "0003_add_index.cql").
	DirRepository struct {
		migrations []*Migration
	}
)

// LoadDir loads all .cql scripts from the given filesystem into a
// DirRepository. The filesystem can be a directory (os.DirFS), an
// embedded filesystem, or any fs.FS.
//
// File names must start with a positive integer version followed by an
// underscore. Migrations are ordered by version, and loading fails on
// duplicate or non-positive versions so that a misnamed script is caught
// before anything touches the database.
//
// Example usage:
//
//	//go:embed migrations/*.cql
//	var migrationsFS embed.FS
//
//	repo, err := migrator.LoadDir(migrationsFS)
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadDir(dir fs.FS) (*DirRepository, error) {
	repo := &DirRepository{}

	// NB: WalkDir always walks in lexical order; numeric version order is
	// restored by the sort below.
	if err := fs.WalkDir(dir, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".cql" {
			return nil
		}

		f, err := dir.Open(path)
		if err != nil {
			return errors.Wrapf(err, "failed to open: %s", path)
		}
		defer func() { _ = f.Close() }()

		content, err := io.ReadAll(f)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration: %s", path)
		}

		name := filepath.Base(path)
		version, err := parseVersion(name)
		if err != nil {
			return err
		}

		repo.migrations = append(repo.migrations, &Migration{
			Version: version,
			Name:    name,
			Script:  string(content),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(repo.migrations, func(i, j int) bool {
		return repo.migrations[i].Version < repo.migrations[j].Version
	})

	for i := 1; i < len(repo.migrations); i++ {
		if repo.migrations[i].Version == repo.migrations[i-1].Version {
			return nil, errors.Errorf(
				"duplicate migration version %d (%s and %s)",
				repo.migrations[i].Version, repo.migrations[i-1].Name, repo.migrations[i].Name,
			)
		}
	}

	return repo, nil
}

// parseVersion extracts the numeric version prefix from a script name
// like "0002_add_users.cql".
func parseVersion(name string) (int64, error) {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, errors.Errorf("migration %s does not match <version>_<description>.cql", name)
	}

	version, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "migration %s has a non-numeric version prefix", name)
	}
	if version <= 0 {
		return 0, errors.Errorf("migration %s has a non-positive version %d", name, version)
	}

	return version, nil
}

// LatestVersion returns the highest version in the repository, or 0 when
// it is empty.
func (r *DirRepository) LatestVersion() int64 {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// MigrationsSince returns all migrations with a version strictly greater
// than the given one, in ascending version order.
func (r *DirRepository) MigrationsSince(version int64) []*Migration {
	idx := sort.Search(len(r.migrations), func(i int) bool {
		return r.migrations[i].Version > version
	})

	pending := make([]*Migration, len(r.migrations)-idx)
	copy(pending, r.migrations[idx:])
	return pending
}

// Migrations returns every migration in the repository, ascending.
func (r *DirRepository) Migrations() []*Migration {
	all := make([]*Migration, len(r.migrations))
	copy(all, r.migrations)
	return all
}
