package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeLabels(t, "ramen\n  dumpling \n\nfalafel\n")

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ramen", "dumpling", "falafel"}, table.Names())
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "dumpling", table.Name(1))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	_, err = Load(writeLabels(t, "\n  \n"))
	assert.Error(t, err)
}

func TestTable_NameOutOfRange(t *testing.T) {
	table := Default()

	assert.Equal(t, "apple", table.Name(0))
	assert.Equal(t, "sushi", table.Name(5))
	assert.Equal(t, Unknown, table.Name(6))
	assert.Equal(t, Unknown, table.Name(-1))

	var empty *Table
	assert.Equal(t, Unknown, empty.Name(0))
	assert.Equal(t, 0, empty.Len())
}

func TestLoadOrDefault(t *testing.T) {
	logger, hook := test.NewNullLogger()

	table := LoadOrDefault(filepath.Join(t.TempDir(), "missing.txt"), logger)
	assert.Equal(t, DefaultFoodClasses, table.Names())
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	table = LoadOrDefault("", logger)
	assert.Equal(t, DefaultFoodClasses, table.Names())

	table = LoadOrDefault(writeLabels(t, "taco\n"), nil)
	assert.Equal(t, []string{"taco"}, table.Names())
}

func TestNewTable_Copies(t *testing.T) {
	names := []string{"a", "b"}
	table := NewTable(names)
	names[0] = "changed"
	assert.Equal(t, "a", table.Name(0))
}
