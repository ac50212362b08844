package rsyncservice

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rsync")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	return path
}

func TestDestination(t *testing.T) {
	tests := []struct {
		host string
		dir  string
		exp  string
	}{
		{"192.168.1.20", "/srv/backup", "backup@192.168.1.20:/srv/backup/"},
		{"192.168.1.20", "/srv/backup/", "backup@192.168.1.20:/srv/backup/"},
		{"192.168.1.20", "/srv/backup//", "backup@192.168.1.20:/srv/backup/"},
		{"192.168.1.20", "relative", "backup@192.168.1.20:relative/"},
		{"192.168.1.20", "/", "backup@192.168.1.20:/"},
		{"fe80::1", "/data", "backup@[fe80::1]:/data/"},
	}

	for _, test := range tests {
		got := Destination("backup", netip.MustParseAddr(test.host), test.dir)
		assert.Equal(t, test.exp, got)
		assert.True(t, strings.HasSuffix(got, "/"))
		assert.False(t, strings.HasSuffix(got, "//"))
	}
}

func TestArgs(t *testing.T) {
	d := NewDispatcher("/usr/bin/rsync", "u@10.0.0.1:/dst/", Options{})
	assert.Equal(t, []string{"--archive", "--verbose", "--compress", "/src/a b.txt", "u@10.0.0.1:/dst/"}, d.Args("/src/a b.txt"))
	assert.Equal(t, `/usr/bin/rsync --archive --verbose --compress "/src/a b.txt" u@10.0.0.1:/dst/`, d.Command("/src/a b.txt"))

	d = NewDispatcher("rsync", "u@10.0.0.1:/dst/", Options{RsyncDryRun: true})
	assert.Equal(t, []string{"--archive", "--verbose", "--compress", "--dry-run", "/src/x", "u@10.0.0.1:/dst/"}, d.Args("/src/x"))
}

func TestDispatchDryRunSpawnsNothing(t *testing.T) {
	var out bytes.Buffer
	marker := filepath.Join(t.TempDir(), "ran")
	bin := stub(t, "touch "+marker)

	d := NewDispatcher(bin, "u@10.0.0.1:/dst/", Options{DryRun: true, Stdout: &out})
	res, err := d.Dispatch(context.Background(), "/src/file")
	require.NoError(t, err)

	assert.False(t, res.Executed)
	assert.Equal(t, "[dry-run] "+d.Command("/src/file")+"\n", out.String())
	assert.NoFileExists(t, marker)
}

func TestDispatchStreamsOutputAndExitCode(t *testing.T) {
	var out, errOut bytes.Buffer
	bin := stub(t, `for a in "$@"; do echo "$a"; done
echo oops >&2
exit 23`)

	d := NewDispatcher(bin, "u@10.0.0.1:/dst/", Options{Stdout: &out, Stderr: &errOut})
	res, err := d.Dispatch(context.Background(), "/src/file")
	require.NoError(t, err)

	assert.True(t, res.Executed)
	assert.Equal(t, 23, res.ExitCode)
	assert.Equal(t, "/src/file", res.Source)
	assert.Equal(t, strings.Join([]string{
		"[rsync] --archive",
		"[rsync] --verbose",
		"[rsync] --compress",
		"[rsync] /src/file",
		"[rsync] u@10.0.0.1:/dst/",
		"rsync exited with code 23",
		"",
	}, "\n"), out.String())
	assert.Equal(t, "oops\n", errOut.String())
}

func TestDispatchSharedWriter(t *testing.T) {
	const lines = 300
	bin := stub(t, `i=0
while [ $i -lt 300 ]; do
	echo "out$i"
	echo "err$i" >&2
	i=$((i+1))
done`)

	var out bytes.Buffer
	d := NewDispatcher(bin, "u@10.0.0.1:/dst/", Options{Stdout: &out, Stderr: &out})
	res, err := d.Dispatch(context.Background(), "/src/file")
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)

	want := len("rsync exited with code 0\n")
	for i := 0; i < lines; i++ {
		stdoutLine := fmt.Sprintf("[rsync] out%d\n", i)
		assert.Contains(t, out.String(), stdoutLine)
		want += len(stdoutLine) + len(fmt.Sprintf("err%d\n", i))
	}
	assert.Equal(t, want, out.Len())
	assert.True(t, strings.HasSuffix(out.String(), "rsync exited with code 0\n"))
}

func TestDispatchSuccess(t *testing.T) {
	var out bytes.Buffer
	d := NewDispatcher(stub(t, "exit 0"), "u@10.0.0.1:/dst/", Options{Stdout: &out})

	res, err := d.Dispatch(context.Background(), "/src/file")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "rsync exited with code 0\n", out.String())
}

func TestDispatchKilledBySignal(t *testing.T) {
	d := NewDispatcher(stub(t, "kill -9 $$"), "u@10.0.0.1:/dst/", Options{Stdout: &bytes.Buffer{}})

	_, err := d.Dispatch(context.Background(), "/src/file")
	assert.ErrorIs(t, err, ErrNoExitCode)
}

func TestDispatchSpawnFailure(t *testing.T) {
	d := NewDispatcher(filepath.Join(t.TempDir(), "missing"), "u@10.0.0.1:/dst/", Options{Stdout: &bytes.Buffer{}})

	_, err := d.Dispatch(context.Background(), "/src/file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, Binary), []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	path, err := Locate()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Binary), path)

	t.Setenv("PATH", t.TempDir())
	_, err = Locate()
	assert.Error(t, err)
}
