package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplierflow/internal/submission/fixtures"
	"supplierflow/internal/submission/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSnapshot(t *testing.T, sub *models.Submission) string {
	t.Helper()
	raw, err := json.Marshal(sub)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestExitError(t *testing.T) {
	code, ok := IsExitError(NewExitError(3))
	assert.True(t, ok)
	assert.Equal(t, 3, code)
	assert.Equal(t, "exit status 3", NewExitError(3).Error())

	_, ok = IsExitError(assert.AnError)
	assert.False(t, ok)
}

func TestCheckCommand(t *testing.T) {
	t.Run("complete snapshot", func(t *testing.T) {
		path := writeSnapshot(t, fixtures.Draft(fixtures.LimitedCompanyFields()))

		out, err := run(t, "check", path)
		require.NoError(t, err)
		assert.Contains(t, out, "complete")
		assert.Contains(t, out, "Whole submission")
	})

	t.Run("missing postcode exits 1", func(t *testing.T) {
		f := fixtures.LimitedCompanyFields()
		f.Supplier.Postcode = ""
		path := writeSnapshot(t, fixtures.Draft(f))

		out, err := run(t, "check", path, "--scope", "4")
		code, ok := IsExitError(err)
		require.True(t, ok)
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Supplier details")
		assert.Contains(t, out, "Postcode (must be a valid UK postcode)")
		assert.Contains(t, out, "supplier.postcode")
	})

	t.Run("other sections ignore the postcode", func(t *testing.T) {
		f := fixtures.LimitedCompanyFields()
		f.Supplier.Postcode = ""
		path := writeSnapshot(t, fixtures.Draft(f))

		_, err := run(t, "check", path, "--scope", "section_1")
		assert.NoError(t, err)
	})

	t.Run("unknown scope", func(t *testing.T) {
		path := writeSnapshot(t, fixtures.Draft(fixtures.LimitedCompanyFields()))
		_, err := run(t, "check", path, "--scope", "9")
		require.Error(t, err)
		_, isExit := IsExitError(err)
		assert.False(t, isExit)
	})

	t.Run("unreadable snapshot", func(t *testing.T) {
		_, err := run(t, "check", filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open snapshot")
	})
}

func TestMatchCommand(t *testing.T) {
	corpus := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(corpus, []byte(`names:
  - Acme Health Ltd
  - Northwind Care
entries:
  - name: Acme Healthcare Group
    reference: SUP-0042
`), 0o600))

	t.Run("ranks matches", func(t *testing.T) {
		out, err := run(t, "match", "ACME Health Limited", "--corpus", corpus)
		require.NoError(t, err)
		assert.Contains(t, out, "1. 100%")
		assert.Contains(t, out, "EXACT_MATCH")
		assert.Contains(t, out, "Acme Health Ltd")
		assert.NotContains(t, out, "Northwind Care")
	})

	t.Run("nothing above threshold", func(t *testing.T) {
		out, err := run(t, "match", "Globex", "--corpus", corpus, "--threshold", "90")
		require.NoError(t, err)
		assert.Contains(t, out, "no matches")
	})

	t.Run("corpus is required", func(t *testing.T) {
		_, err := run(t, "match", "Globex")
		assert.Error(t, err)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		_, err := run(t, "match", "Globex", "--corpus", corpus, "--threshold", "101")
		assert.Error(t, err)
	})
}

func TestRoutesCommand(t *testing.T) {
	out, err := run(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "draft")
	assert.Contains(t, out, "-> pending_pbp")
	assert.Contains(t, out, "(terminal)")
}

func TestServeRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n"), 0o600))

	_, err := run(t, "serve", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}
