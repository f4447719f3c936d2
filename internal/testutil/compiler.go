package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeCompilerScript accepts the same command lines as g++ but treats
// sources as POSIX shell. Compiling copies the source to the object;
// linking concatenates library objects and then the primary object into an
// executable script. A source containing "#error" fails to compile and an
// object containing "#nolink" fails to link. Both markers are shell
// comments, so they are harmless once linked.
const fakeCompilerScript = `#!/bin/sh
compile=0
out=
primary=
libs=
while [ $# -gt 0 ]; do
	case "$1" in
	-c) compile=1 ;;
	-o) shift; out="$1" ;;
	-*) ;;
	*)
		if [ -z "$primary" ]; then primary="$1"; else libs="$libs $1"; fi
		;;
	esac
	shift
done

if [ -z "$primary" ] || [ -z "$out" ]; then
	echo "fakecxx: usage: fakecxx input... -o output" >&2
	exit 2
fi

if [ "$compile" = 1 ]; then
	if grep -q '#error' "$primary"; then
		echo "$primary:1:2: error: #error directive" >&2
		exit 1
	fi
	cp "$primary" "$out" || exit 1
	exit 0
fi

for f in $libs "$primary"; do
	if grep -q '#nolink' "$f"; then
		echo "fakecxx: $f: undefined reference" >&2
		exit 1
	fi
done

{
	echo '#!/bin/sh'
	for f in $libs; do cat "$f"; echo; done
	cat "$primary"
	echo
} > "$out" || exit 1
chmod +x "$out"
`

// WriteFakeCompiler writes the fake toolchain into dir and returns its
// path. It fails when no POSIX shell is available.
func WriteFakeCompiler(dir string) (string, error) {
	if _, err := exec.LookPath("sh"); err != nil {
		return "", fmt.Errorf("fake compiler needs sh: %w", err)
	}
	path := filepath.Join(dir, "fakecxx")
	if err := os.WriteFile(path, []byte(fakeCompilerScript), 0o755); err != nil {
		return "", fmt.Errorf("write fake compiler: %w", err)
	}
	return path, nil
}

// FakeCompiler writes the fake toolchain into a test temp directory,
// skipping the test when it cannot run.
func FakeCompiler(t testing.TB) string {
	t.Helper()
	path, err := WriteFakeCompiler(t.TempDir())
	if err != nil {
		t.Skip(err.Error())
	}
	return path
}
