package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixtureError(t *testing.T) {
	cause := errors.New("bad value")
	err := fmt.Errorf("error in pipeline: %w", NewFixtureError(KindCoercion, "dateCol", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindCoercion))
	assert.False(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(cause, KindCoercion))
	assert.Equal(t, "error in pipeline: coercion error on table dateCol: bad value", err.Error())
	assert.Equal(t, "config error: bad value", NewFixtureError(KindConfig, "", cause).Error())
}

func TestPermError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", PermError("no such table"))
	assert.True(t, isPermanent(err))
	assert.False(t, isPermanent(errors.New("timeout")))
}

func TestBytesToMB(t *testing.T) {
	assert.Equal(t, 1.0, BytesToMB(1048576))
	assert.Equal(t, 14.0/1048576, BytesToMB(14))
}

func TestGeneratedIDs(t *testing.T) {
	a, b := GenRandomID("stat_"), GenRandomID("stat_")
	assert.Len(t, a, len("stat_")+22)
	assert.NotEqual(t, a, b)

	k1 := GenKSortedID("run_")
	assert.Len(t, k1, len("run_")+27)
}
