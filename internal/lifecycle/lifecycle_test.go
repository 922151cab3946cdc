package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_Nil(t *testing.T) {
	assert.Equal(t, ExitOK, Code(nil))
}

func TestCode_Usage(t *testing.T) {
	err := fmt.Errorf("bad flag: %w", ErrUsage)
	assert.Equal(t, ExitUsage, Code(err))
}

func TestCode_Failure(t *testing.T) {
	assert.Equal(t, ExitFailure, Code(errors.New("boom")))
}
