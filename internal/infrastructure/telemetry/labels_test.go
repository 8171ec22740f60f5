package telemetry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelPairs(t *testing.T) {
	long := strings.Repeat("x", 200)
	pairs := labelPairs(map[string]string{
		"trigger": "manual",
		"job":     "order_ingest",
		"":        "dropped",
		"empty":   " ",
		"long":    long,
	})

	assert.Equal(t, []string{"job", "order_ingest", "long", long[:maxLabelValueLength], "trigger", "manual"}, pairs)
}
