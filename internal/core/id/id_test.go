package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TimeOrdered(t *testing.T) {
	a, b := New(), New()
	assert.Equal(t, 7, int(a.Version()))
	assert.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	v := New()
	got, err := Parse(" " + v.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, v, got)

	for _, in := range []string{"", "TXN-20240101-ABC123", v.String()[:35] + "z"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
