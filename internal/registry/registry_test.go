package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHeader_CreatesRecord(t *testing.T) {
	r := New()

	rec, err := r.RegisterHeader("foo", "/tmp/s/foo.h", nil)
	require.NoError(t, err)

	assert.Equal(t, "foo", rec.Name)
	assert.Equal(t, "/tmp/s/foo.h", rec.HeaderPath)
	assert.Empty(t, rec.HeaderDeps)
	assert.False(t, rec.HasBinary())
	assert.Equal(t, 1, rec.Revision)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterBinary_KeepsHeaderFields(t *testing.T) {
	r := New()
	_, err := r.RegisterHeader("foo", "/s/foo.h", []string{"bar"})
	require.NoError(t, err)

	rec, err := r.RegisterBinary("foo", "/s/foo.o", []string{"foo", "baz"})
	require.NoError(t, err)

	assert.Equal(t, "/s/foo.h", rec.HeaderPath)
	assert.Equal(t, []string{"bar"}, rec.HeaderDeps)
	assert.Equal(t, "/s/foo.o", rec.BinaryPath)
	assert.Equal(t, []string{"baz", "foo"}, rec.BinaryDeps)
	assert.Equal(t, 2, rec.Revision)
}

func TestRegisterHeader_KeepsBinaryFields(t *testing.T) {
	r := New()
	_, err := r.RegisterBinary("foo", "/s/foo.o", []string{"x"})
	require.NoError(t, err)

	rec, err := r.RegisterHeader("foo", "/s/foo.h", nil)
	require.NoError(t, err)

	assert.Equal(t, "/s/foo.o", rec.BinaryPath)
	assert.Equal(t, []string{"x"}, rec.BinaryDeps)
	assert.True(t, rec.HasHeader())
}

func TestRedefinition_LastWriteWins(t *testing.T) {
	r := New()
	_, err := r.RegisterBinary("foo", "/s/foo-1.o", []string{"a"})
	require.NoError(t, err)
	_, err = r.RegisterBinary("foo", "/s/foo-2.o", []string{"b"})
	require.NoError(t, err)

	rec, ok := r.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, "/s/foo-2.o", rec.BinaryPath)
	assert.Equal(t, []string{"b"}, rec.BinaryDeps)
	assert.Equal(t, 2, rec.Revision)
}

func TestRegister_Validation(t *testing.T) {
	r := New()

	_, err := r.RegisterHeader("  ", "/s/x.h", nil)
	assert.Error(t, err)

	_, err = r.RegisterBinary("x", "", nil)
	assert.Error(t, err)

	assert.Equal(t, 0, r.Len())
}

func TestNormalize_NFC(t *testing.T) {
	r := New()
	_, err := r.RegisterHeader("cafe\u0301", "/s/cafe.h", nil)
	require.NoError(t, err)

	rec, ok := r.Lookup("caf\u00e9")
	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", rec.Name)
}

func TestDeps_DeduplicatesAndSorts(t *testing.T) {
	r := New()
	_, err := r.RegisterHeader("m", "/s/m.h", []string{"z", "a", "z", ""})
	require.NoError(t, err)
	_, err = r.RegisterBinary("m", "/s/m.o", []string{"a", "k"})
	require.NoError(t, err)

	rec, _ := r.Lookup("m")
	assert.Equal(t, []string{"a", "z"}, rec.HeaderDeps)
	assert.Equal(t, []string{"a", "k", "z"}, rec.Deps())
}

func TestLookup_ReturnsCopy(t *testing.T) {
	r := New()
	_, err := r.RegisterHeader("foo", "/s/foo.h", []string{"bar"})
	require.NoError(t, err)

	rec, _ := r.Lookup("foo")
	rec.HeaderDeps[0] = "mutated"

	again, _ := r.Lookup("foo")
	assert.Equal(t, []string{"bar"}, again.HeaderDeps)
}

func TestHeaderPath(t *testing.T) {
	r := New()
	_, err := r.RegisterBinary("onlybin", "/s/onlybin.o", nil)
	require.NoError(t, err)
	_, err = r.RegisterHeader("hdr", "/s/hdr.h", nil)
	require.NoError(t, err)

	_, ok := r.HeaderPath("onlybin")
	assert.False(t, ok)

	p, ok := r.HeaderPath("hdr")
	assert.True(t, ok)
	assert.Equal(t, "/s/hdr.h", p)

	_, ok = r.HeaderPath("missing")
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	r := New()
	for _, n := range []string{"netio", "netpoll", "math", "strutil"} {
		_, err := r.RegisterHeader(n, "/s/"+n+".h", nil)
		require.NoError(t, err)
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"math", "netio", "netpoll", "strutil"}},
		{"net*", []string{"netio", "netpoll"}},
		{"{math,strutil}", []string{"math", "strutil"}},
		{"nothing*", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			recs, err := r.Match(tt.pattern)
			require.NoError(t, err)
			var names []string
			for _, rec := range recs {
				names = append(names, rec.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMatch_InvalidPattern(t *testing.T) {
	r := New()
	_, err := r.Match("[unclosed")
	assert.Error(t, err)
}
