// Package rsyncservice builds and runs one rsync invocation per file.
package rsyncservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

const Binary = "rsync"

var baseArgs = []string{"--archive", "--verbose", "--compress"}

// ErrNoExitCode is returned when rsync's exit status cannot be read, e.g.
// because it was killed by a signal.
var ErrNoExitCode = errors.New("unable to get status code from child process (rsync)")

// Locate returns the path of rsync on PATH.
func Locate() (string, error) {
	path, err := exec.LookPath(Binary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", Binary, err)
	}

	return path, nil
}

// Destination renders user@host:dir/. The single trailing slash makes rsync
// place files inside dir instead of creating a nested copy.
func Destination(user string, host netip.Addr, dir string) string {
	h := host.String()
	if host.Is6() {
		h = "[" + h + "]"
	}

	return fmt.Sprintf("%s@%s:%s/", user, h, strings.TrimRight(dir, "/"))
}

type Options struct {
	// Print commands instead of running them.
	DryRun bool
	// Pass --dry-run to rsync.
	RsyncDryRun bool

	Stdout io.Writer
	Stderr io.Writer
}

// Result describes one dispatched file.
type Result struct {
	Source   string
	Executed bool
	ExitCode int
}

type Dispatcher struct {
	binary      string
	destination string
	opts        Options
}

func NewDispatcher(binary, destination string, opts Options) *Dispatcher {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	// rsync's stderr is copied from an os/exec goroutine while Dispatch writes
	// stdout lines, and callers often pass the same writer for both.
	mu := &sync.Mutex{}
	opts.Stdout = &lockedWriter{mu: mu, w: opts.Stdout}
	opts.Stderr = &lockedWriter{mu: mu, w: opts.Stderr}

	return &Dispatcher{binary: binary, destination: destination, opts: opts}
}

// lockedWriter serializes writes that share mu.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}

func (d *Dispatcher) Destination() string {
	return d.destination
}

// Args returns the rsync arguments for source.
func (d *Dispatcher) Args(source string) []string {
	args := append([]string{}, baseArgs...)
	if d.opts.RsyncDryRun {
		args = append(args, "--dry-run")
	}

	return append(args, source, d.destination)
}

// Command returns the command line for source, quoted for display.
func (d *Dispatcher) Command(source string) string {
	parts := []string{quote(d.binary)}
	for _, a := range d.Args(source) {
		parts = append(parts, quote(a))
	}

	return strings.Join(parts, " ")
}

type exitStatus struct {
	state *os.ProcessState
	err   error
}

// Dispatch syncs a single path. In dry-run mode the command is printed and
// nothing is spawned. Otherwise rsync's stdout is echoed line by line while a
// goroutine waits for the exit status. A non-zero exit code is reported in
// the result, not as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, source string) (Result, error) {
	res := Result{Source: source}
	log.Infof("Syncing %s to %s", source, d.destination)

	if d.opts.DryRun {
		fmt.Fprintf(d.opts.Stdout, "[dry-run] %s\n", d.Command(source))
		return res, nil
	}

	cmd := exec.CommandContext(ctx, d.binary, d.Args(source)...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = d.opts.Stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		return res, fmt.Errorf("failed to start child process (rsync): %w", err)
	}
	log.Debugf("started %s (pid %d)", d.binary, cmd.Process.Pid)

	status := make(chan exitStatus, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		status <- exitStatus{state: cmd.ProcessState, err: err}
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintf(d.opts.Stdout, "[rsync] %s\n", scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep the pipe drained so Wait can return.
		_, _ = io.Copy(io.Discard, pr)
	}

	st := <-status
	if scanErr != nil {
		return res, fmt.Errorf("reading rsync output: %w", scanErr)
	}

	code, err := exitCode(st)
	if err != nil {
		return res, err
	}

	res.Executed = true
	res.ExitCode = code
	fmt.Fprintf(d.opts.Stdout, "rsync exited with code %d\n", code)

	return res, nil
}

func exitCode(st exitStatus) (int, error) {
	var exitErr *exec.ExitError
	if st.err != nil && !errors.As(st.err, &exitErr) {
		return 0, fmt.Errorf("%w: %v", ErrNoExitCode, st.err)
	}
	if st.state == nil {
		return 0, ErrNoExitCode
	}

	code := st.state.ExitCode()
	if code < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoExitCode, st.state)
	}

	return code, nil
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\$`*?[]{}()<>|&;#~") {
		return strconv.Quote(s)
	}

	return s
}
