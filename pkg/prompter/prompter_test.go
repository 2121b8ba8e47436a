package prompter

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, input string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetIO(strings.NewReader(input), &buf)
	t.Cleanup(func() { SetIO(os.Stdin, os.Stdout) })
	return &buf
}

func TestPromptString(t *testing.T) {
	out := feed(t, "  ada  \n")
	s, err := PromptString("Username: ")
	require.NoError(t, err)
	assert.Equal(t, "ada", s)
	assert.Equal(t, "Username: ", out.String())
}

func TestPromptStringWithoutTrailingNewline(t *testing.T) {
	feed(t, "last")
	s, err := PromptString("> ")
	require.NoError(t, err)
	assert.Equal(t, "last", s)

	_, err = PromptString("> ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestPromptRequiredRepeats(t *testing.T) {
	out := feed(t, "\n\nvalue\n")
	s, err := PromptRequired("Name: ")
	require.NoError(t, err)
	assert.Equal(t, "value", s)
	assert.Equal(t, 2, strings.Count(out.String(), "A value is required."))
}

func TestPromptPasswordFromPipe(t *testing.T) {
	feed(t, "s3cret pass\n")
	pw, err := PromptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "s3cret pass", pw)
}

func TestPromptConfirm(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false} {
		feed(t, input)
		ok, err := PromptConfirm("Sure?")
		require.NoError(t, err)
		assert.Equal(t, want, ok, input)
	}
}

func TestPromptSelect(t *testing.T) {
	feed(t, "2\n")
	idx, err := PromptSelect("Pick", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	feed(t, "9\n")
	_, err = PromptSelect("Pick", []string{"a"})
	assert.Error(t, err)

	feed(t, "x\n")
	_, err = PromptSelect("Pick", []string{"a"})
	assert.Error(t, err)
}

func TestPromptMultilineString(t *testing.T) {
	feed(t, "first\nsecond\n\nignored\n")
	s, err := PromptMultilineString("Body", 10)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", s)

	feed(t, "a\nb\nc\n")
	s, err = PromptMultilineString("Body", 2)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", s)
}
