package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewParamsClamps(t *testing.T) {
	p := NewParams(0, 1000)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = NewParams(3, 0)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 40, p.Offset)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(items, NewParams(1, 2)))
	assert.Equal(t, []int{5}, Slice(items, NewParams(3, 2)))
	assert.Empty(t, Slice(items, NewParams(4, 2)))
}

func TestGetMeta(t *testing.T) {
	m := GetMeta(NewParams(2, 2), 5)
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNext)
	assert.True(t, m.HasPrev)
}
