package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailTag(t *testing.T) {
	a := EmailTag("a@x.com")
	assert.Len(t, a, 16)
	assert.Equal(t, a, EmailTag("  A@X.com "))
	assert.NotEqual(t, a, EmailTag("b@x.com"))
	assert.Empty(t, EmailTag(" "))
}
