package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndReasonSurviveWrapping(t *testing.T) {
	base := Conflict(ReasonDuplicate, "appeal for record %d exists", 7)
	wrapped := fmt.Errorf("create appeal: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, ReasonDuplicate, ReasonOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindNotFound))
	assert.Equal(t, "appeal for record 7 exists (duplicate)", base.Error())
}

func TestForeignErrorsHaveNoKind(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, "", ReasonOf(err))
	assert.False(t, Is(nil, KindNotFound))
}

func TestTransientUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWithReason(t *testing.T) {
	err := NotFound("record %d", 3)
	merged := WithReason(err, ReasonUnauthorized)

	assert.Equal(t, ReasonUnauthorized, ReasonOf(merged))
	assert.Equal(t, ReasonNotFound, ReasonOf(err))

	plain := errors.New("x")
	assert.Same(t, plain, WithReason(plain, ReasonForbidden))
}
