package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classpulse/backend/internal/errs"
)

func TestOperationWrapsUnexpectedErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.Operation("save lecture", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "save lecture")
	require.False(t, errs.IsDomain(err))
}

func TestOperationPassesDomainErrorsThrough(t *testing.T) {
	for _, sentinel := range []error{
		errs.ErrNotFound,
		errs.ErrInvalidTransition,
		errs.ErrDuplicateResponse,
		errs.ErrValidationFailed,
	} {
		err := errs.Operation("anything", sentinel)
		require.Equal(t, sentinel, err)
		require.True(t, errs.IsDomain(err))
	}
}

func TestOperationNil(t *testing.T) {
	require.NoError(t, errs.Operation("noop", nil))
}
