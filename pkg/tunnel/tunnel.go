package tunnel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/Eventual-Inc/daft-launcher/shared"
)

// DashboardPort is the head node's control dashboard and job endpoint; it is
// always forwarded.
const DashboardPort = 8265

// RayClientPort is the head's client RPC port, forwarded for interactive
// connections.
const RayClientPort = 10001

// establishTimeout bounds how long we wait for the child to report an
// authenticated session.
var establishTimeout = 5 * time.Second

// ErrTunnelEstablishment is returned when the local forwarding process fails
// to come up.
var ErrTunnelEstablishment = errors.New("failed to establish tunnel")

// sshBinary is the forwarding executable; overridden in tests.
var sshBinary = "ssh"

// Opts describes one tunnel session to a head node.
type Opts struct {
	HeadAddress  string
	User         string
	IdentityFile string
	ExtraPorts   []int
}

// Handle supervises the forwarding child process. The session's local ports
// are exclusively owned by the handle until Close.
type Handle struct {
	cmd  *exec.Cmd
	done chan error

	closeOnce sync.Once
}

// Open validates the identity key, spawns the port-forwarding process and
// waits until the transport reports an established session, a conclusive
// failure, or ctx is done. Establishment strictly precedes any caller's use
// of the forwarded ports.
func Open(ctx context.Context, opts Opts) (*Handle, error) {
	if err := validateIdentityFile(opts.IdentityFile); err != nil {
		return nil, err
	}

	watcher := newAuthWatcher(opts.HeadAddress)

	cmd := exec.Command(sshBinary, sshArgs(opts)...)
	cmd.Stderr = watcher
	cmd.Stdout = watcher

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTunnelEstablishment, err)
	}

	handle := &Handle{
		cmd:  cmd,
		done: make(chan error, 1),
	}
	go func() {
		handle.done <- cmd.Wait()
	}()

	select {
	case <-watcher.authenticated:
		shared.LogLevel("debug", "tunnel to %s established", opts.HeadAddress)
		return handle, nil
	case err := <-handle.done:
		handle.done <- err
		return nil, fmt.Errorf("%w: process exited early: %v\n%s",
			ErrTunnelEstablishment, err, watcher.output())
	case <-ctx.Done():
		handle.Close()
		return nil, ctx.Err()
	case <-time.After(establishTimeout):
		handle.Close()
		return nil, fmt.Errorf("%w: timed out waiting for session to %s\n%s",
			ErrTunnelEstablishment, opts.HeadAddress, watcher.output())
	}
}

// Wait blocks until the forwarding process exits. An exit driven by a signal
// is how the operator ends a foreground session, so it is not an error; only
// a child that fails on its own accord reports one.
func (h *Handle) Wait() error {
	err := <-h.done
	h.done <- err

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}

	return err
}

// Close terminates the forwarding process. Safe to call more than once and
// after the process has already exited.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
}

func sshArgs(opts Opts) []string {
	args := []string{
		"-N", "-v",
		"-o", "StrictHostKeyChecking=no",
		"-i", opts.IdentityFile,
		"-L", fmt.Sprintf("%d:localhost:%d", DashboardPort, DashboardPort),
	}
	for _, port := range opts.ExtraPorts {
		args = append(args, "-L", fmt.Sprintf("%d:localhost:%d", port, port))
	}
	args = append(args, fmt.Sprintf("%s@%s", opts.User, opts.HeadAddress))

	return args
}

// validateIdentityFile rejects paths that do not hold a parseable private
// key before any process is spawned.
func validateIdentityFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read identity file: %v", ErrTunnelEstablishment, err)
	}
	if _, err := ssh.ParsePrivateKey(data); err != nil {
		return fmt.Errorf("%w: %s is not a valid private key: %v", ErrTunnelEstablishment, path, err)
	}

	return nil
}

// authWatcher collects child output and closes its channel once the
// transport prints the authentication line. There is no standard
// "session ready" message, so matching the verbose output is the only
// readiness signal available.
type authWatcher struct {
	mu            sync.Mutex
	buf           bytes.Buffer
	needle        string
	authenticated chan struct{}
	seen          bool
}

func newAuthWatcher(addr string) *authWatcher {
	return &authWatcher{
		needle:        "Authenticated to " + addr,
		authenticated: make(chan struct{}),
	}
}

func (w *authWatcher) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	if !w.seen && strings.Contains(w.buf.String(), w.needle) {
		w.seen = true
		close(w.authenticated)
	}

	return len(p), nil
}

func (w *authWatcher) output() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.buf.String()
}
