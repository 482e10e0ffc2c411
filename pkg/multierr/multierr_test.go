package multierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errOne = errors.New("one")
	errTwo = errors.New("two")
)

func Test_Append(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want error
	}{
		{name: "no errors", errs: nil, want: nil},
		{name: "nil ignored", errs: []error{nil, nil}, want: nil},
		{name: "single unwrapped", errs: []error{errOne}, want: errOne},
		{name: "two collected", errs: []error{errOne, nil, errTwo}, want: Error{errOne, errTwo}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var e Error
			for _, err := range tt.errs {
				e.Append(err)
			}
			assert.Equal(tt.want, e.ErrOrNil())
		})
	}
}

func Test_ErrorString(t *testing.T) {
	assert := assert.New(t)

	e := Error{errOne, errTwo}
	assert.Equal("2 errors occurred:\n\t* one\n\t* two", e.Error())
}

func Test_Is(t *testing.T) {
	assert := assert.New(t)

	e := Error{fmt.Errorf("wrapped: %w", errOne), errTwo}
	assert.True(errors.Is(e, errOne))
	assert.True(errors.Is(e, errTwo))
	assert.False(errors.Is(e, errors.New("other")))
}
