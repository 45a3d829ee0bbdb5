package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	BookID uint   `json:"buku_id" validate:"required,gt=0"`
	Date   string `json:"tanggal_kembali" validate:"required,datetime=2006-01-02"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{BookID: 1, Date: "2026-10-20"}))

	err := Struct(sample{Date: "20-10-2026"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "buku_id is required")
		assert.Contains(t, err.Error(), "tanggal_kembali must be a date in 2006-01-02 format")
	}
}
