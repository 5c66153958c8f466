package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-trip-audit/internal/models"
)

func TestClassifyDefaults(t *testing.T) {
	c := New(nil)

	tests := []struct {
		identifier string
		want       models.Category
	}{
		{"TRK-9-BKP", models.CategoryDepotBackup},
		{"TRK-77-BACKUP", models.CategoryDepotBackup},
		{"VAN-3-TRANSFER", models.CategoryTransfer},
		{"RT-12", models.CategoryActiveStandard},
		{"TRK-500", models.CategoryActiveStandard},
		{"trk-9-bkp", models.CategoryDepotBackup}, // case-insensitive
		{"?", models.CategoryUnknown},
		{"", models.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.identifier))
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := New([]Rule{
		{Pattern: "TRK", Category: models.CategoryTransfer},
		{Pattern: "BKP", Category: models.CategoryDepotBackup},
	})

	// Both patterns match; the earlier rule decides.
	assert.Equal(t, models.CategoryTransfer, c.Classify("TRK-9-BKP"))
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil)
	first := c.Classify("TRK-42-TRANSFER")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("TRK-42-TRANSFER"))
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	content := `[
		{"pattern": "SPARE", "category": "depot_backup"},
		{"pattern": "MOVE", "category": "transfer"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	c := New(rules)
	assert.Equal(t, models.CategoryDepotBackup, c.Classify("TRK-1-SPARE"))
	assert.Equal(t, models.CategoryTransfer, c.Classify("TRK-2-MOVE"))
}

func TestLoadRulesRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad_category.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"pattern": "X", "category": "nope"}]`), 0o644))
	_, err := LoadRules(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty_pattern.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[{"pattern": "", "category": "transfer"}]`), 0o644))
	_, err = LoadRules(empty)
	assert.Error(t, err)
}
