package cql_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/caretaker-db/caretaker/pkg/cql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected []string
	}{
		{
			name:     "single statement",
			script:   "CREATE TABLE users (id uuid PRIMARY KEY);",
			expected: []string{"CREATE TABLE users (id uuid PRIMARY KEY)"},
		},
		{
			name:     "missing trailing terminator",
			script:   "CREATE TABLE users (id uuid PRIMARY KEY)",
			expected: []string{"CREATE TABLE users (id uuid PRIMARY KEY)"},
		},
		{
			name:   "multiple statements",
			script: "USE app; CREATE TABLE a (id int PRIMARY KEY); CREATE TABLE b (id int PRIMARY KEY);",
			expected: []string{
				"USE app",
				"CREATE TABLE a (id int PRIMARY KEY)",
				"CREATE TABLE b (id int PRIMARY KEY)",
			},
		},
		{
			name:     "terminator inside string literal",
			script:   "INSERT INTO t (v) VALUES ('a; b');",
			expected: []string{"INSERT INTO t (v) VALUES ('a; b')"},
		},
		{
			name:     "escaped quote inside string literal",
			script:   "INSERT INTO t (v) VALUES ('it''s; fine');",
			expected: []string{"INSERT INTO t (v) VALUES ('it''s; fine')"},
		},
		{
			name:     "terminator inside quoted identifier",
			script:   `ALTER TABLE "weird;name" ADD c int;`,
			expected: []string{`ALTER TABLE "weird;name" ADD c int`},
		},
		{
			name:     "line comments stripped",
			script:   "-- drop it\nDROP TABLE legacy; // done\n",
			expected: []string{"DROP TABLE legacy"},
		},
		{
			name:     "block comment with terminator stripped",
			script:   "/* step one;\n   step two */ DROP TABLE legacy;",
			expected: []string{"DROP TABLE legacy"},
		},
		{
			name:     "comments only",
			script:   "-- nothing here\n/* or; here */\n",
			expected: nil,
		},
		{
			name:     "empty script",
			script:   "",
			expected: nil,
		},
		{
			name:     "blank statements dropped",
			script:   ";;\nDROP TABLE legacy;\n;",
			expected: []string{"DROP TABLE legacy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statements, err := Split(tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, statements)
		})
	}
}

func TestSplitGoldenFiles(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("testdata", "*.in.cql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "No *.in.cql files found in testdata directory")

	for _, inputFile := range matches {
		basename := filepath.Base(inputFile)
		outputName := strings.TrimSuffix(basename, ".in.cql") + ".cql"

		t.Run(outputName, func(t *testing.T) {
			script, err := os.ReadFile(inputFile)
			require.NoError(t, err)

			statements, err := Split(string(script))
			require.NoError(t, err)

			result := strings.Join(statements, ";\n\n") + ";\n"
			golden.Assert(t, result, outputName)
		})
	}
}
