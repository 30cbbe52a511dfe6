// Package remote runs launcher commands on peer machines over SSH.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	coreremote "github.com/artpar/storm-docker/internal/core/remote"
)

// ErrCommandFailed is wrapped by RemoteError when a command exits non-zero.
var ErrCommandFailed = errors.New("remote command failed")

// RemoteError reports a failed command on a host.
type RemoteError struct {
	Host       string
	Command    string
	ExitStatus int
	Stderr     string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.ExitStatus != 0 {
		return fmt.Sprintf("%s: %q exited with status %d: %s", e.Host, e.Command, e.ExitStatus, e.Stderr)
	}
	return fmt.Sprintf("%s: %q: %v", e.Host, e.Command, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Config configures the SSH executor.
type Config struct {
	User           string
	Port           int           // Default: 22
	KeyFile        string        // Private key path, used when Key is empty
	Key            []byte        // Private key (PEM)
	KnownHosts     string        // known_hosts path; empty disables host key checks
	ConnectTimeout time.Duration // Default: 10 seconds
	CommandTimeout time.Duration // Default: 5 minutes
}

// Result is the output of a remote command.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Executor runs commands on remote hosts, keeping one connection per host.
type Executor struct {
	cfg      Config
	auth     ssh.AuthMethod
	hostKeys ssh.HostKeyCallback
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// NewExecutor creates an executor from cfg.
func NewExecutor(cfg Config, logger *slog.Logger) (*Executor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 5 * time.Minute
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("USER")
	}

	key := cfg.Key
	if len(key) == 0 {
		if cfg.KeyFile == "" {
			return nil, errors.New("ssh: no private key configured")
		}
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read SSH private key: %w", err)
		}
		key = data
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse SSH private key: %w", err)
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		if hostKeys, err = knownhosts.New(cfg.KnownHosts); err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
	}

	return &Executor{
		cfg:      cfg,
		auth:     ssh.PublicKeys(signer),
		hostKeys: hostKeys,
		logger:   logger,
		clients:  make(map[string]*ssh.Client),
	}, nil
}

// =============================================================================
// Connection Management
// =============================================================================

func (e *Executor) connect(ctx context.Context, host string) (*ssh.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[host]; ok {
		if _, _, err := c.SendRequest("keepalive@storm-docker", true, nil); err == nil {
			return c, nil
		}
		c.Close()
		delete(e.clients, host)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(e.cfg.Port))
	dialer := net.Dialer{Timeout: e.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            e.cfg.User,
		Auth:            []ssh.AuthMethod{e.auth},
		HostKeyCallback: e.hostKeys,
		Timeout:         e.cfg.ConnectTimeout,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	c := ssh.NewClient(sshConn, chans, reqs)
	e.clients[host] = c
	return c, nil
}

// Close closes every open connection.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for host, c := range e.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(e.clients, host)
	}
	return errors.Join(errs...)
}

// =============================================================================
// Command Execution
// =============================================================================

// Run executes command on host. A non-zero exit status is returned as a
// RemoteError wrapping ErrCommandFailed, together with the captured output.
func (e *Executor) Run(ctx context.Context, host, command string) (Result, error) {
	client, err := e.connect(ctx, host)
	if err != nil {
		return Result{}, &RemoteError{Host: host, Command: command, Err: err}
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, &RemoteError{Host: host, Command: command, Err: fmt.Errorf("create session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		return Result{}, &RemoteError{Host: host, Command: command, Err: ctx.Err()}
	case <-time.After(e.cfg.CommandTimeout):
		return Result{}, &RemoteError{Host: host, Command: command, Err: fmt.Errorf("timeout after %s", e.cfg.CommandTimeout)}
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitStatus = exitErr.ExitStatus()
			return res, &RemoteError{Host: host, Command: command, ExitStatus: res.ExitStatus, Stderr: res.Stderr, Err: ErrCommandFailed}
		}
		return res, &RemoteError{Host: host, Command: command, Err: err}
	}
	return res, nil
}

// Launch runs every step in order: destroy the component, then run it.
// Destroy failures are logged and ignored; a run failure stops the launch.
func (e *Executor) Launch(ctx context.Context, steps []coreremote.Step, workdir, binary string) error {
	for _, s := range steps {
		destroy, run := coreremote.Commands(workdir, binary, s)
		logger := e.logger.With("host", s.Host, "address", s.Address, "component", s.Component)

		if _, err := e.Run(ctx, s.Address, destroy); err != nil {
			logger.Warn("destroy failed, continuing", "error", err)
		}
		res, err := e.Run(ctx, s.Address, run)
		if err != nil {
			return err
		}
		logger.Info("component started", "output", res.Stdout)
	}
	return nil
}
