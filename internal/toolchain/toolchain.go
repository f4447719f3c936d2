// Package toolchain turns snippets and link sets into compiler, linker and
// program command lines.
package toolchain

import (
	"io"
	"strings"

	"github.com/roach88/cppcell/internal/supervisor"
)

// Defaults match a stock g++ C++20 setup.
const (
	DefaultCompiler = "g++"
	DefaultStd      = "c++20"
)

// Config selects the compiler and the flags added to every compile.
type Config struct {
	Compiler string
	Std      string
	LinkMath bool
	Wall     bool
	Wextra   bool
	Werror   bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Compiler: DefaultCompiler,
		Std:      DefaultStd,
		LinkMath: true,
		Wall:     true,
		Wextra:   true,
	}
}

func (c Config) compiler() string {
	if c.Compiler == "" {
		return DefaultCompiler
	}
	return c.Compiler
}

// CompileFlags returns the snippet's flags followed by the configured
// defaults, the include path and -c. -std= is added only when the snippet
// did not choose a standard itself.
func (c Config) CompileFlags(user []string, includeDir string) []string {
	flags := append([]string(nil), user...)
	if c.LinkMath {
		flags = append(flags, "-lm")
	}
	if c.Wall {
		flags = append(flags, "-Wall")
	}
	if c.Wextra {
		flags = append(flags, "-Wextra")
	}
	if c.Werror {
		flags = append(flags, "-Werror")
	}
	if !hasStd(flags) && c.Std != "" {
		flags = append(flags, "-std="+c.Std)
	}
	return append(flags, "-I"+includeDir, "-c")
}

func hasStd(flags []string) bool {
	for _, f := range flags {
		if strings.HasPrefix(f, "-std=") {
			return true
		}
	}
	return false
}

// Compile builds the command compiling source into object.
func (c Config) Compile(source, object, includeDir string, user []string) supervisor.Command {
	args := []string{source}
	args = append(args, c.CompileFlags(user, includeDir)...)
	args = append(args, "-o", object)
	return supervisor.Command{Path: c.compiler(), Args: args}
}

// Link builds the command linking object and every library object into
// executable. Linker flags go last so -l libraries follow their users.
func (c Config) Link(object string, libraries []string, executable string, ldflags []string) supervisor.Command {
	args := []string{object}
	args = append(args, libraries...)
	args = append(args, "-o", executable)
	args = append(args, ldflags...)
	return supervisor.Command{Path: c.compiler(), Args: args}
}

// Run builds the command executing a linked program.
func Run(executable string, args []string, stdin io.Reader) supervisor.Command {
	return supervisor.Command{
		Path:  executable,
		Args:  append([]string(nil), args...),
		Stdin: stdin,
	}
}
