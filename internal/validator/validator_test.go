package validator

import (
	"testing"

	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string   `validate:"required"`
	Rate  *float64 `validate:"required,gte=0"`
	Limit int      `validate:"omitempty,min=1,max=500"`
}

func TestValidateRequest(t *testing.T) {
	rate := 10.0
	negative := -1.0
	zero := 0.0

	assert.NoError(t, ValidateRequest(sample{Name: "ok", Rate: &rate}))
	assert.NoError(t, ValidateRequest(sample{Name: "ok", Rate: &zero}), "zero is a valid rate")

	err := ValidateRequest(sample{Rate: &negative, Limit: 501})
	assert.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	err = ValidateRequest(sample{Name: "ok"})
	assert.True(t, ierr.IsValidation(err), "nil pointer fails required")
}
