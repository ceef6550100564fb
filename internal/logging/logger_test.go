package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
		wantLevel   logrus.Level
		wantJSON    bool
	}{
		{name: "debug in development", level: "debug", environment: "development", wantLevel: logrus.DebugLevel},
		{name: "warn in production", level: "warn", environment: "production", wantLevel: logrus.WarnLevel, wantJSON: true},
		{name: "bad level falls back to info", level: "chatty", environment: "development", wantLevel: logrus.InfoLevel},
		{name: "empty level falls back to info", level: "", environment: "production", wantLevel: logrus.InfoLevel, wantJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.environment)

			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}
