package echoweb

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/zenacademy/core"
	"github.com/trezcool/zenacademy/core/auth"
	"github.com/trezcool/zenacademy/core/course"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func TestServer_failureMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		wantLog bool
	}{
		{name: "expected error", err: errors.Wrap(course.ErrModuleNotFound, "updating module"), want: "module not found"},
		{name: "auth error", err: errors.Wrap(auth.ErrEmailTaken, "updating email"), want: auth.ErrEmailTaken.Error()},
		{name: "validation error", err: core.NewValidationError(course.ErrModuleTitleRequired), want: course.ErrModuleTitleRequired.Error()},
		{name: "remote error", err: errors.Wrap(errors.New("pq: connection refused"), "querying modules"), want: "pq: connection refused", wantLog: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			s := &Server{deps: ServerDeps{Logger: logger}}

			assert.Equal(t, tt.want, s.failureMessage(tt.err, "doing"))
			if tt.wantLog {
				assert.Equal(t, []string{"doing failed"}, logger.errors)
			} else {
				assert.Empty(t, logger.errors)
			}
		})
	}
}
