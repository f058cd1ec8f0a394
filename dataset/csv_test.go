package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func quietLoader(opts ...Option) *Loader {
	return NewLoader(append([]Option{WithLogger(log.NewTestLogger(log.LevelError))}, opts...)...)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "km,price\n240000,3650\n139800,3800\n150500,4400\n")

	s, err := quietLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{240000, 139800, 150500}, s.Mileage)
	assert.Equal(t, []float64{3650, 3800, 4400}, s.Price)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.Dropped)
	assert.Equal(t, path, s.Source)
	assert.Equal(t, 240000.0, s.MaxMileage())
}

func TestReadColumnOrderAndExtras(t *testing.T) {
	in := "\ufeffmodel, price ,km\nclio,5000,10000\npolo,4000,20000\n"

	s, err := quietLoader().Read(strings.NewReader(in), "inline")
	require.NoError(t, err)
	assert.Equal(t, []float64{10000, 20000}, s.Mileage)
	assert.Equal(t, []float64{5000, 4000}, s.Price)
}

func TestReadCustomColumns(t *testing.T) {
	in := "mileage,eur\n1,2\n3,4\n"

	s, err := quietLoader(WithColumns("mileage", "eur")).Read(strings.NewReader(in), "inline")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, s.Mileage)
	assert.Equal(t, []float64{2, 4}, s.Price)
}

func TestReadDropsMissingRows(t *testing.T) {
	logger := log.NewTestLogger(log.LevelWarn)
	in := "km,price\n1000,9000\n,8000\n2000,NA\n3000,nan\nnull,1\n4000\n5000,7000\n"

	s, err := NewLoader(WithLogger(logger)).Read(strings.NewReader(in), "inline")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 5000}, s.Mileage)
	assert.Equal(t, []float64{9000, 7000}, s.Price)
	assert.Equal(t, 5, s.Dropped)
	assert.True(t, logger.ContainsMessage("Dropped rows with missing values"))
	assert.True(t, logger.ContainsField(log.DroppedKey, 5.0))
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		row    int
		column string
		empty  bool
	}{
		{name: "empty file", in: "", empty: true},
		{name: "header only", in: "km,price\n", empty: true},
		{name: "all rows missing", in: "km,price\n,\nNA,NA\n", empty: true},
		{name: "missing mileage column", in: "miles,price\n1,2\n", column: "km"},
		{name: "missing price column", in: "km,cost\n1,2\n", column: "price"},
		{name: "non-numeric mileage", in: "km,price\n1,2\nlots,3\n", row: 3, column: "km"},
		{name: "non-numeric price", in: "km,price\n1,cheap\n", row: 2, column: "price"},
		{name: "infinite price", in: "km,price\n1,2\n2,Inf\n", row: 3, column: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietLoader().Read(strings.NewReader(tt.in), "data.csv")
			require.Error(t, err)

			var inErr *errors.InputError
			require.True(t, errors.As(err, &inErr), "expected InputError, got %T", err)
			assert.Equal(t, "data.csv", inErr.Source)
			if tt.empty {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
				return
			}
			assert.Equal(t, tt.row, inErr.Row)
			assert.Equal(t, tt.column, inErr.Column)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	_, err := Load(path)
	var inErr *errors.InputError
	require.True(t, errors.As(err, &inErr))
	assert.Equal(t, "file not found", inErr.Reason)
	assert.True(t, os.IsNotExist(inErr.Err))
}
