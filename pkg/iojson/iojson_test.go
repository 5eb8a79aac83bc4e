package iojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalError(t *testing.T) {
	out := MarshalError("command failed", map[string]any{"exit_code": 2})

	var got Error
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "command failed", got.Message)
	assert.EqualValues(t, 2, got.Data["exit_code"])
}

func TestMarshalError_Unmarshalable(t *testing.T) {
	out := MarshalError("bad", map[string]any{"fn": func() {}})

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "bad", got["message"])
	assert.Contains(t, got["data"], "json_error")
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, map[string]int{"a": 1}))
	require.NoError(t, WriteLine(&buf, map[string]int{"b": 2}))

	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
}

func TestWriteWith(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, map[string]string{"k": "v"}))

	assert.Equal(t, "{\n  \"k\": \"v\"\n}\n", out.String())
	assert.Empty(t, errOut.String())
}

type request struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

func TestFileReader(t *testing.T) {
	t.Run("from stdin", func(t *testing.T) {
		fr := &FileReader[request]{Stdin: strings.NewReader(`{"command":"echo","args":["hi"]}`)}

		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, request{Command: "echo", Args: []string{"hi"}}, got)
		assert.False(t, fr.Provided())
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "req.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"command":"ls"}`), 0o644))

		fr := &FileReader[request]{fileFlagValue: path}
		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, "ls", got.Command)
		assert.True(t, fr.Provided())
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		fr := &FileReader[request]{Stdin: strings.NewReader(`{"cmd":"echo"}`)}
		_, err := fr.Read()
		assert.Error(t, err)
	})
}
