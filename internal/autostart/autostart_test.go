package autostart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandQuotesPath(t *testing.T) {
	assert.Equal(t, `"C:\Program Files\CapsGlow\capsglow.exe"`, Command(`C:\Program Files\CapsGlow\capsglow.exe`))
}
