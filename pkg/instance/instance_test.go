package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrecedence(t *testing.T) {
	t.Setenv("STOREFRONT_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	assert.Equal(t, "local", ID())

	t.Setenv("HOSTNAME", "api-7f9c")
	assert.Equal(t, "api-7f9c", ID())

	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "web.1", ID())

	t.Setenv("STOREFRONT_INSTANCE_ID", " cron-a ")
	assert.Equal(t, "cron-a", ID())
}
