package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/registry"
)

func TestParse_Magics(t *testing.T) {
	code := "//%cppflags:-O2  -DX=1\n" +
		"//%ldflags:-lpthread\n" +
		"//%cppflags:-g\n" +
		"//%args:a b\n" +
		"int main() {}\n"

	p := Parse(code, registry.New())

	assert.Equal(t, []string{"-O2", "-DX=1", "-g"}, p.Snippet.CompilerFlags)
	assert.Equal(t, []string{"-lpthread"}, p.Snippet.LinkerFlags)
	assert.Equal(t, []string{"a", "b"}, p.Snippet.Args)
	assert.Equal(t, "\n\n\n\nint main() {}\n", p.Snippet.Code, "magic lines are blanked")
	assert.Nil(t, p.Snippet.Target)
	assert.Equal(t, ir.TargetExecutable, p.Snippet.Kind())
	assert.Empty(t, p.Notices)
}

func TestParse_FileDirective(t *testing.T) {
	tests := []struct {
		file     string
		wantName string
		wantKind ir.TargetKind
		notice   string
	}{
		{"foo.cpp", "foo", ir.TargetLibrary, "Using file as library. It will be linked if a header with the same name is included."},
		{"foo.h", "foo", ir.TargetHeader, "Using file as header."},
		{"net.io.hpp", "net.io", ir.TargetHeader, "Using file as header."},
		{"foo.txt", "", "", "Supplied filename suffix (txt) is not one of the supported: .cpp, .h, .hpp and will be ignored."},
		{"noext", "", "", "Supplied filename suffix () is not one of the supported: .cpp, .h, .hpp and will be ignored."},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			p := Parse("//%file:"+tt.file+"\nint x;\n", nil)
			if tt.wantKind == "" {
				assert.Nil(t, p.Snippet.Target)
			} else {
				require.NotNil(t, p.Snippet.Target)
				assert.Equal(t, tt.wantName, p.Snippet.Target.TargetName)
				assert.Equal(t, tt.wantKind, p.Snippet.Target.TargetKind)
			}
			assert.Equal(t, []string{tt.notice}, p.Notices)
		})
	}
}

func TestParse_FileLastValueWins(t *testing.T) {
	p := Parse("//%file:a.h\n//%file:b.cpp\n", nil)
	require.NotNil(t, p.Snippet.Target)
	assert.Equal(t, "b", p.Snippet.Target.TargetName)
	assert.Equal(t, ir.TargetLibrary, p.Snippet.Target.TargetKind)
}

func TestParse_IncludeRewriting(t *testing.T) {
	reg := registry.New()
	_, err := reg.RegisterHeader("foo", "/s/tmp123.h", nil)
	require.NoError(t, err)
	_, err = reg.RegisterBinary("bodyonly", "/s/tmp9.o", nil)
	require.NoError(t, err)

	code := "#include <vector>\n" +
		"#include \"foo.h\"\n" +
		"#include \"foo.hpp\"\n" +
		"#include \"bodyonly.h\"\n" +
		"#include \"other.h\"\n" +
		"  #include \"foo.h\"\n"

	p := Parse(code, reg)

	assert.Equal(t, []string{"foo", "bodyonly"}, p.Snippet.Includes)
	assert.Equal(t, "#include <vector>\n"+
		"#include \"/s/tmp123.h\"\n"+
		"#include \"/s/tmp123.h\"\n"+
		"#include \"bodyonly.h\"\n"+
		"#include \"other.h\"\n"+
		"  #include \"foo.h\"\n", p.Snippet.Code)
}

func TestParse_CRLF(t *testing.T) {
	p := Parse("//%args:x\r\nint main(){}\r\n", nil)
	assert.Equal(t, []string{"x"}, p.Snippet.Args)
	assert.Equal(t, "\nint main(){}\n", p.Snippet.Code)
}

func TestParse_Empty(t *testing.T) {
	p := Parse("", nil)
	assert.Equal(t, "", p.Snippet.Code)
}
