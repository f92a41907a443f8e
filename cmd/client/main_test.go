package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPumpLines_NormalisesLineEndings(t *testing.T) {
	var out bytes.Buffer
	err := pumpLines(&out, strings.NewReader("Server: Welcome\r\nUSERS: bob\nlast"), "\n")
	require.NoError(t, err)
	assert.Equal(t, "Server: Welcome\nUSERS: bob\nlast\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPumpLines_StopsOnWriteError(t *testing.T) {
	err := pumpLines(failingWriter{}, strings.NewReader("LIST\n"), "\n")
	assert.EqualError(t, err, "broken pipe")
}
