package chat

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("LIST\r\nCHAT bob\nlast"))

	for _, want := range []string{"LIST", "CHAT bob", "last"} {
		line, err := readLine(r)
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := readLine(r)
	assert.Equal(t, io.EOF, err)
}

func TestReadLine_OversizedLineIsSkipped(t *testing.T) {
	exact := strings.Repeat("a", maxLineLength)
	long := strings.Repeat("b", 3*maxLineLength)
	r := bufio.NewReader(strings.NewReader(exact + "\r\n" + long + "\nLIST\n" + long))

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Len(t, line, maxLineLength)

	_, err = readLine(r)
	assert.ErrorIs(t, err, errLineTooLong)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "LIST", line, "reading resumes after the oversized line")

	_, err = readLine(r)
	assert.Equal(t, io.EOF, err, "an unterminated oversized tail ends the stream")
}
