package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func (r fakeResult) Table() Table {
	return Table{
		Title:   "Prices",
		Headers: []string{"NAME", "PRICE"},
		Rows:    [][]string{{r.Name, Money(float64(r.Price))}},
		Notes:   []string{"source: test"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "JSON": FormatJSON, " table ": FormatTable} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestResolve_NonTerminalIsJSON(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, FormatJSON, FormatAuto.Resolve(&buf))
	assert.Equal(t, FormatTable, FormatTable.Resolve(&buf))
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := fakeResult{Name: "Wheat", Price: 2100}
	require.NoError(t, Render(&buf, FormatAuto, r, r))

	var got fakeResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, r, got)
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	r := fakeResult{Name: "Wheat", Price: 2100}
	require.NoError(t, Render(&buf, FormatTable, r, r))

	out := buf.String()
	assert.Contains(t, out, "Prices")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Wheat")
	assert.Contains(t, out, "₹2100")
	assert.Contains(t, out, "source: test")
}

func TestRender_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TableFormatter{}.Render(&buf, emptyResult{}, nil))
	assert.Contains(t, buf.String(), "(no rows)")
}

type emptyResult struct{}

func (emptyResult) Table() Table { return Table{Headers: []string{"A"}} }
