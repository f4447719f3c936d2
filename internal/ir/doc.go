// Package ir defines the plain data types shared by every cppcell package.
//
// ir imports nothing internal. Snippets flow in, Results flow out, and the
// types in between (channels, directives, error kinds) are named here so the
// registry, supervisor, bridge and engine agree on them without importing
// one another.
//
// All JSON and YAML tags use snake_case.
package ir
