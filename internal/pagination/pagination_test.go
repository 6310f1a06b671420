package pagination

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{5, 2, 3},
		{100, 1, 100},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Size: 50}.Offset())
	assert.Equal(t, 4, Params{Page: 3, Size: 2}.Offset())
	assert.Equal(t, math.MaxInt, Params{Page: math.MaxInt, Size: 2}.Offset())
	assert.Equal(t, math.MaxInt, Params{Page: math.MaxInt/2 + 2, Size: 2}.Offset())
	assert.Equal(t, math.MaxInt-1, Params{Page: math.MaxInt/2 + 1, Size: 2}.Offset())
	assert.Equal(t, math.MaxInt-3, Params{Page: math.MaxInt / 2, Size: 2}.Offset())
	assert.Equal(t, math.MaxInt, Params{Page: 3, Size: math.MaxInt}.Offset())
}

func TestPageCoversEveryRowOnce(t *testing.T) {
	rows := make([]int, 23)
	for i := range rows {
		rows[i] = len(rows) - i
	}

	size := 5
	pages := Pages(int64(len(rows)), size)
	require.Equal(t, 5, pages)

	var seen []int
	for page := 1; page <= pages; page++ {
		p := Params{Page: page, Size: size}
		end := p.Offset() + size
		if end > len(rows) {
			end = len(rows)
		}
		seen = append(seen, rows[p.Offset():end]...)
	}
	assert.Equal(t, rows, seen)
}

func TestNewPageEmptyRendersArray(t *testing.T) {
	page := NewPage[int](nil, 0, Params{Page: DefaultPage, Size: DefaultSize})

	b, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"size":50,"pages":0}`, string(b))
}
