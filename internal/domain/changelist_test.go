package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangelistStatus_Transitions(t *testing.T) {
	// Forward path
	assert.True(t, ChangelistOpen.CanTransition(ChangelistValidating))
	assert.True(t, ChangelistValidating.CanTransition(ChangelistSubmitted))
	assert.True(t, ChangelistSubmitted.CanTransition(ChangelistActivating))
	assert.True(t, ChangelistActivating.CanTransition(ChangelistActive))

	// No skipping stages
	assert.False(t, ChangelistOpen.CanTransition(ChangelistSubmitted))
	assert.False(t, ChangelistOpen.CanTransition(ChangelistActive))
	assert.False(t, ChangelistSubmitted.CanTransition(ChangelistActive))

	// No moving backwards
	assert.False(t, ChangelistValidating.CanTransition(ChangelistOpen))
	assert.False(t, ChangelistActivating.CanTransition(ChangelistSubmitted))
}

func TestChangelistStatus_FailedFromAnyNonTerminal(t *testing.T) {
	for _, s := range []ChangelistStatus{ChangelistOpen, ChangelistValidating, ChangelistSubmitted, ChangelistActivating} {
		assert.True(t, s.CanTransition(ChangelistFailed), "from %s", s)
	}
}

func TestChangelistStatus_TerminalStatesAreFinal(t *testing.T) {
	assert.True(t, ChangelistActive.Terminal())
	assert.True(t, ChangelistFailed.Terminal())
	assert.False(t, ChangelistOpen.Terminal())
	assert.False(t, ChangelistActivating.Terminal())

	for _, next := range []ChangelistStatus{ChangelistOpen, ChangelistValidating, ChangelistSubmitted, ChangelistActivating, ChangelistActive, ChangelistFailed} {
		assert.False(t, ChangelistActive.CanTransition(next), "ACTIVE -> %s", next)
		assert.False(t, ChangelistFailed.CanTransition(next), "FAILED -> %s", next)
	}
}
