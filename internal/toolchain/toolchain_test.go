package toolchain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/cppcell/internal/supervisor"
)

func render(label string, c supervisor.Command) string {
	return fmt.Sprintf("%s: %s\n", label, c.String())
}

func TestCommands_Golden(t *testing.T) {
	def := DefaultConfig()
	strict := DefaultConfig()
	strict.Werror = true
	strict.Compiler = "clang++"
	bare := Config{}

	var b strings.Builder
	b.WriteString(render("compile default", def.Compile("/s/cell1.cpp", "/s/cell1.o", "/s", nil)))
	b.WriteString(render("compile own std", def.Compile("/s/cell2.cpp", "/s/cell2.o", "/s", []string{"-O2", "-std=c++17"})))
	b.WriteString(render("compile strict", strict.Compile("/s/cell3.cpp", "/s/cell3.o", "/s", []string{"-g"})))
	b.WriteString(render("compile bare", bare.Compile("/s/cell4.cpp", "/s/cell4.o", "/s", nil)))
	b.WriteString(render("link none", def.Link("/s/cell5.o", nil, "/s/cell5", nil)))
	b.WriteString(render("link libs", def.Link("/s/cell6.o", []string{"/s/foo.o", "/s/net.o"}, "/s/cell6", []string{"-lpthread"})))
	b.WriteString(render("run", Run("/s/cell6", []string{"--n", "3"}, nil)))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "commands", []byte(b.String()))
}

func TestCompileFlags_DoesNotAliasInput(t *testing.T) {
	user := make([]string, 1, 8)
	user[0] = "-O1"
	_ = DefaultConfig().CompileFlags(user, "/s")

	assert.Equal(t, []string{"-O1"}, user)
	assert.Equal(t, "", user[:2][1], "caller's spare capacity untouched")
}

func TestRun_CopiesArgs(t *testing.T) {
	args := []string{"a"}
	c := Run("/bin/prog", args, nil)
	args[0] = "changed"
	assert.Equal(t, []string{"a"}, c.Args)
}
