// Package directive preprocesses raw cell text into an ir.Snippet.
//
// A cell may carry magic lines of the form
//
//	//%cppflags:-O2 -DNDEBUG
//	//%ldflags:-lpthread
//	//%args:--count 3
//	//%file:name.hpp
//
// List magics split on whitespace and accumulate; file keeps its last
// value. Magic lines are blanked so compiler diagnostics keep their line
// numbers. A line `#include "name.ext"` whose stem names a registered
// library is recorded as a dependency and, if a header is registered,
// rewritten to include that header's path.
package directive

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/roach88/cppcell/internal/ir"
	"github.com/roach88/cppcell/internal/registry"
)

var (
	magicPattern   = regexp.MustCompile(`^//%(cppflags|ldflags|args|file):(.*)$`)
	includePattern = regexp.MustCompile(`^#include[ \t]*"(.*)"$`)
)

// Libraries is the registry view preprocessing needs.
type Libraries interface {
	Lookup(name string) (registry.Record, bool)
}

// Parsed is a preprocessed cell.
type Parsed struct {
	Snippet ir.Snippet

	// Notices are user-facing remarks about the directives, e.g. an
	// unsupported file suffix.
	Notices []string
}

// Parse preprocesses code against the libraries registered so far.
func Parse(code string, libs Libraries) Parsed {
	var (
		out      strings.Builder
		parsed   Parsed
		file     string
		haveFile bool
		seen     = make(map[string]bool)
	)

	for _, line := range splitLines(code) {
		if m := magicPattern.FindStringSubmatch(line); m != nil {
			key, value := m[1], m[2]
			switch key {
			case "cppflags":
				parsed.Snippet.CompilerFlags = append(parsed.Snippet.CompilerFlags, strings.Fields(value)...)
			case "ldflags":
				parsed.Snippet.LinkerFlags = append(parsed.Snippet.LinkerFlags, strings.Fields(value)...)
			case "args":
				parsed.Snippet.Args = append(parsed.Snippet.Args, strings.Fields(value)...)
			case "file":
				file, haveFile = strings.TrimSpace(value), true
			}
			out.WriteByte('\n')
			continue
		}

		if m := includePattern.FindStringSubmatch(line); m != nil && libs != nil {
			name := registry.Normalize(stem(m[1]))
			if rec, ok := libs.Lookup(name); ok && name != "" {
				if !seen[name] {
					seen[name] = true
					parsed.Snippet.Includes = append(parsed.Snippet.Includes, name)
				}
				if rec.HasHeader() {
					fmt.Fprintf(&out, "#include %q\n", rec.HeaderPath)
					continue
				}
			}
		}

		out.WriteString(line)
		out.WriteByte('\n')
	}

	parsed.Snippet.Code = out.String()
	if haveFile {
		parsed.Snippet.Target, parsed.Notices = fileTarget(file)
	}
	return parsed
}

// fileTarget maps a //%file value to a directive by its suffix.
func fileTarget(file string) (*ir.Directive, []string) {
	ext := path.Ext(file)
	name := strings.TrimSuffix(file, ext)
	suffix := strings.TrimPrefix(ext, ".")

	switch {
	case name != "" && suffix == "cpp":
		return &ir.Directive{TargetName: registry.Normalize(name), TargetKind: ir.TargetLibrary},
			[]string{"Using file as library. It will be linked if a header with the same name is included."}
	case name != "" && (suffix == "h" || suffix == "hpp"):
		return &ir.Directive{TargetName: registry.Normalize(name), TargetKind: ir.TargetHeader},
			[]string{"Using file as header."}
	default:
		return nil, []string{fmt.Sprintf("Supplied filename suffix (%s) is not one of the supported: .cpp, .h, .hpp and will be ignored.", suffix)}
	}
}

func stem(file string) string {
	return strings.TrimSuffix(file, path.Ext(file))
}

// splitLines splits on \n, \r\n and \r, dropping a trailing empty line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
