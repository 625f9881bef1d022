package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Success(map[string]int{"applied": 3}, func(io.Writer) { t.Fatal("text renderer called in json mode") })
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data["applied"])
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(nil, func(w io.Writer) { fmt.Fprintln(w, "done") }))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_JSONFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Failure("E_INCOMPLETE", "backup incomplete", map[string]int{"passes": 1}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_INCOMPLETE", resp.Error.Code)
	assert.Equal(t, "backup incomplete", resp.Error.Message)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.Failure("E_SKIPPED", "2 entities skipped", nil, func(w io.Writer) { fmt.Fprintln(w, "summary") })
	require.Error(t, err)
	assert.Equal(t, "summary\nError [E_SKIPPED]: 2 entities skipped\n", buf.String())
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"nil", nil, ExitSuccess, ""},
		{"plain", errors.New("boom"), ExitFailure, "boom"},
		{"exit", NewExitError(ExitCommandError, "bad flag"), ExitCommandError, "bad flag"},
		{"wrapped", WrapExitError(ExitCommandError, "open db", errors.New("no such file")), ExitCommandError, "open db: no such file"},
		{"nested", fmt.Errorf("outer: %w", NewExitError(ExitFailure, "inner")), ExitFailure, "outer: inner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, GetExitCode(tt.err))
			if tt.err != nil {
				assert.Equal(t, tt.wantMsg, tt.err.Error())
			}
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := WrapExitError(ExitCommandError, "msg", cause)
	assert.ErrorIs(t, err, cause)
}
