package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		exp   log.Level
	}{
		{"TRACE", log.TraceLevel},
		{"debug", log.DebugLevel},
		{"Info", log.InfoLevel},
		{"WARN", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
	}

	for _, test := range tests {
		lvl, err := ParseLevel(test.input)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.exp, lvl, test.input)
	}

	for _, bad := range []string{"", "verbose", "fatal", "panic"} {
		_, err := ParseLevel(bad)
		assert.Error(t, err, bad)
	}
}
