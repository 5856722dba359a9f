package util

import (
	"errors"
	"testing"

	"confhub/internal/common"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"alice@example.com", true},
		{" alice@example.com ", true},
		{"", false},
		{"   ", false},
		{"alice", false},
		{"alice@", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateEmail(tt.email))
		})
	}
}

func TestParseObjectID(t *testing.T) {
	want := primitive.NewObjectID()
	got, err := ParseObjectID(want.Hex())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseObjectID("not-an-id")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestValidationFields(t *testing.T) {
	type address struct {
		City string `json:"city"`
	}
	type payload struct {
		Name    string  `json:"name"`
		Address address `json:"address"`
	}
	p := payload{}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Address, validation.By(func(any) error {
			return validation.ValidateStruct(&p.Address, validation.Field(&p.Address.City, validation.Required))
		})),
	)
	got := ValidationFields(err)

	var ve *common.ValidationError
	require.ErrorAs(t, got, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "address.city")

	assert.NoError(t, ValidationFields(nil))
	assert.ErrorIs(t, ValidationFields(errors.New("bad")), common.ErrValidation)
	assert.ErrorIs(t, ValidationFields(validation.NewInternalError(errors.New("boom"))), common.ErrInternal)
}
