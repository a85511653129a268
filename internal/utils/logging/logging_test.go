package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetLevel(logrus.DebugLevel)
	defer SetLevel(logrus.InfoLevel)

	Component("rpserver").Debug("hello")
	WithError(errors.New("boom")).Error("failed")

	out := buf.String()
	assert.Contains(t, out, "component=rpserver")
	assert.Contains(t, out, "msg=hello")
	assert.Contains(t, out, "error=boom")
}
