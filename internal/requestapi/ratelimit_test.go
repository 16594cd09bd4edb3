// Copyright (c) 2024 The Water Institute
// Licensed under the MIT License.

package requestapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLimiters_SeparateKeysDoNotShareBudget(t *testing.T) {
	limiters, err := newKeyLimiters(1)
	require.NoError(t, err)

	assert.True(t, limiters.allow("a"))
	assert.False(t, limiters.allow("a"), "a's single-request burst should already be spent")
	assert.True(t, limiters.allow("b"), "b must get its own budget regardless of a's state")
}
