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
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"classified": 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "rules.cue", "line": "42"}
	err := formatter.Error(ErrCodeNotFound, "rules file not found", details)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "rules file not found", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("All rules valid"))
	assert.Equal(t, "All rules valid\n", buf.String())
}

type countReport struct {
	Classified int `json:"classified"`
}

func (r countReport) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d classified\n", r.Classified)
	return err
}

func TestOutputFormatter_SuccessRun(t *testing.T) {
	text := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: text}
	require.NoError(t, formatter.SuccessRun("run-7", countReport{Classified: 2}))
	assert.Equal(t, "2 classified\n\nRun ID: run-7\n", text.String())

	js := &bytes.Buffer{}
	formatter = &OutputFormatter{Format: "json", Writer: js}
	require.NoError(t, formatter.SuccessRun("run-7", countReport{Classified: 2}))

	var resp struct {
		Status string      `json:"status"`
		Data   countReport `json:"data"`
		RunID  string      `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(js.Bytes(), &resp))
	assert.Equal(t, "run-7", resp.RunID)
	assert.Equal(t, 2, resp.Data.Classified)
}

func TestOutputFormatter_TextReportError(t *testing.T) {
	formatter := &OutputFormatter{Format: "text", Writer: failingWriter{}}
	err := formatter.SuccessRun("run-7", countReport{})
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			err := formatter.Error(ErrCodeParseFailed, "bad row", map[string]int{"line": 7})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Error [E008]: bad row")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("Loaded %d families", 12)
	assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
	assert.Equal(t, "Loaded 12 families\n", errOut.String())

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("hidden")
	assert.Empty(t, out.String())
	assert.Equal(t, out, quiet.GetErrWriter())
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "write report", cause)

	assert.Equal(t, "write report: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "2 scenario(s) failed")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
