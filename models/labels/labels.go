// Package labels - Class label tables for detection models.
package labels

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Unknown is the label reported for class indices the table cannot resolve.
const Unknown = "unknown"

// DefaultFoodClasses is the built-in label set of the bundled food model.
var DefaultFoodClasses = []string{
	"apple", "banana", "bread", "pizza", "salad", "sushi",
}

// Table is an ordered list of class names indexed by class id.
type Table struct {
	names []string
}

// NewTable creates a table from class names in class-index order.
func NewTable(names []string) *Table {
	cp := make([]string, len(names))
	copy(cp, names)
	return &Table{names: cp}
}

// Default returns a table holding DefaultFoodClasses.
func Default() *Table {
	return NewTable(DefaultFoodClasses)
}

// Name resolves a class index to its label.
//
// Arguments:
//   - index: The class index produced by the model.
//
// Returns:
//   - string: The class name, or Unknown if index is out of range.
func (t *Table) Name(index int) string {
	if t == nil || index < 0 || index >= len(t.names) {
		return Unknown
	}
	return t.names[index]
}

// Len returns the number of classes in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Names returns a copy of the class names.
func (t *Table) Names() []string {
	cp := make([]string, t.Len())
	if t != nil {
		copy(cp, t.names)
	}
	return cp
}

// Load reads a label file with one class name per line.
//
// Leading and trailing whitespace is trimmed and blank lines are skipped.
//
// Arguments:
//   - path: The path to the label file.
//
// Returns:
//   - *Table: The loaded table.
//   - error: An error if the file cannot be read or holds no labels.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open label file")
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read label file %s", path)
	}
	if len(names) == 0 {
		return nil, errors.Errorf("label file %s is empty", path)
	}

	return &Table{names: names}, nil
}

// LoadOrDefault loads the label file at path, falling back to Default when
// the path is empty or the file cannot be loaded.
//
// Arguments:
//   - path: The path to the label file. May be empty.
//   - log: Logger for the fallback warning. May be nil.
//
// Returns:
//   - *Table: The loaded or default table. Never nil.
func LoadOrDefault(path string, log logrus.FieldLogger) *Table {
	if path == "" {
		return Default()
	}

	table, err := Load(path)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("path", path).Warn("falling back to built-in food labels")
		}
		return Default()
	}
	return table
}
