package pkg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinedWriter(t *testing.T) {
	var b1, b2 bytes.Buffer
	cw := NewCombinedWriter(&b1, &b2)

	n, err := cw.Write([]byte("deadlift"))
	require.NoError(t, err)

	assert.Equal(t, 2*len("deadlift"), n)
	assert.Equal(t, "deadlift", b1.String())
	assert.Equal(t, "deadlift", b2.String())
}
