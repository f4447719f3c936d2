package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cppcell/internal/ir"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/library_then_program.yaml")
	require.NoError(t, err)

	assert.Equal(t, "library_then_program", s.Name)
	assert.True(t, s.PrintInfos)
	require.Len(t, s.Cells, 2)
	assert.Equal(t, "//%file:foo.cpp\n#include \"foo.h\"\nhelper() { return 1; }\n", s.Cells[0].Code)
	require.NotNil(t, s.Cells[1].Expect)
	require.NotNil(t, s.Cells[1].Expect.ExitCode)
	assert.Equal(t, 1, *s.Cells[1].Expect.ExitCode)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertLinkSet, s.Assertions[1].Type)
	assert.Equal(t, []string{"foo"}, s.Assertions[1].Names)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_AllFixturesParse(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\ncell: []\n",
			wantErr: "field cell not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\ncells: [{code: x}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\ncells: [{code: x}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no cells",
			yaml:    "name: x\ndescription: d\n",
			wantErr: "cells list is required",
		},
		{
			name:    "empty code",
			yaml:    "name: x\ndescription: d\ncells: [{code: \"\"}]\n",
			wantErr: "cells[0]: code is required",
		},
		{
			name:    "bad status",
			yaml:    "name: x\ndescription: d\ncells: [{code: x, expect: {status: maybe}}]\n",
			wantErr: "status must be ok or error",
		},
		{
			name:    "error kind on ok",
			yaml:    "name: x\ndescription: d\ncells: [{code: x, expect: {status: ok, error_kind: LinkingError}}]\n",
			wantErr: "error_kind requires status error",
		},
		{
			name:    "bad toolchain",
			yaml:    "name: x\ndescription: d\ntoolchain: clang\ncells: [{code: x}]\n",
			wantErr: "unknown toolchain",
		},
		{
			name:    "negative notifications",
			yaml:    "name: x\ndescription: d\nvin: {notifications: -1}\ncells: [{code: x}]\n",
			wantErr: "vin.notifications",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: d\ncells: [{code: x}]\nassertions: [{type: vibes}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "library without name",
			yaml:    "name: x\ndescription: d\ncells: [{code: x}]\nassertions: [{type: library}]\n",
			wantErr: "name is required for library",
		},
		{
			name:    "link_set cell out of range",
			yaml:    "name: x\ndescription: d\ncells: [{code: x}]\nassertions: [{type: link_set, cell: 2}]\n",
			wantErr: "cell must be between 1 and 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_Defaults(t *testing.T) {
	s, err := ParseScenario([]byte("name: x\ndescription: d\ncells:\n  - code: echo hi\n"))
	require.NoError(t, err)
	assert.Equal(t, "", s.Toolchain)
	assert.Nil(t, s.VIN)
	assert.Nil(t, s.Cells[0].Expect)
}

func TestCheckExpect(t *testing.T) {
	one := 1
	got := CellTrace{Status: ir.StatusError, ErrorKind: ir.LinkingError, ExitCode: &one, Stdout: "out", Stderr: "err"}

	assert.Empty(t, checkExpect(0, &Expect{Status: ir.StatusError, ErrorKind: ir.LinkingError, ExitCode: &one}, got))

	errs := checkExpect(0, nil, got)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "cell 1: status: expected ok")

	two := 2
	want := "other"
	errs = checkExpect(2, &Expect{
		Status:         ir.StatusError,
		ErrorKind:      ir.CompilationError,
		ExitCode:       &two,
		Stdout:         &want,
		StdoutContains: []string{"missing"},
		StderrContains: []string{"err"},
	}, got)
	assert.Len(t, errs, 4)
	for _, e := range errs {
		assert.Contains(t, e, "cell 3: ")
	}
}

func TestCheckExpect_ExitCodeWithoutProcess(t *testing.T) {
	zero := 0
	errs := checkExpect(0, &Expect{Status: ir.StatusOK, ExitCode: &zero}, CellTrace{Status: ir.StatusOK})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no process ran")
}
