package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/infra/validation"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Guests int    `json:"guests" validate:"gte=1"`
}

func TestValidator(t *testing.T) {
	v := validation.New()
	ctx := context.Background()

	assert.NoError(t, v.Validate(ctx, sample{Email: "a@example.com", Guests: 2}))
	assert.NoError(t, v.Validate(ctx, &sample{Email: "a@example.com", Guests: 1}))
	assert.NoError(t, v.Validate(ctx, "not a struct"))

	err := v.Validate(ctx, sample{Email: "nope", Guests: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrValidation)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "email", verr.Fields[0].Rule)
	assert.Equal(t, "gte", verr.Fields[1].Rule)
	assert.Contains(t, err.Error(), "sample.guests")
}
