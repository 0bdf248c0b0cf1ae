// Package engine launches and supervises a local LanguageTool server
// process and builds the configuration it is started with.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// State is the liveness state of a supervised server process.
type State int

const (
	StateNew State = iota
	StateStarting
	StateReady
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StartError reports that the engine process failed to become ready. Output
// holds whatever the process wrote to stdout/stderr before it died or the
// readiness deadline passed.
type StartError struct {
	Output string
	Err    error
}

func (e *StartError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("engine failed to start: %v", e.Err)
	}
	return fmt.Sprintf("engine failed to start: %v\nserver output:\n%s", e.Err, e.Output)
}

func (e *StartError) Unwrap() error { return e.Err }

const (
	defaultReadyTimeout = 60 * time.Second
	stopGracePeriod     = 5 * time.Second
	probeTimeout        = 2 * time.Second
	maxCapturedOutput   = 64 << 10
)

// StartOptions configures a single server launch.
type StartOptions struct {
	JavaPath     string  // resolved java executable
	Jar          string  // engine jar to put on the classpath
	Port         int     // 0 picks a free ephemeral port
	Config       *Config // optional server options, written to a properties file
	ReadyTimeout time.Duration
}

// Supervisor owns one engine server process: it launches the process, waits
// for it to answer HTTP, and terminates it. A Supervisor is not restartable;
// start a new one per process. Methods are safe for concurrent use.
type Supervisor struct {
	mu         sync.Mutex
	state      State
	cmd        *exec.Cmd
	port       int
	configPath string
	output     *boundedBuffer
	exited     chan struct{}
	exitErr    error

	stopOnce sync.Once
	stopErr  error
}

// NewSupervisor returns an idle Supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{output: &boundedBuffer{limit: maxCapturedOutput}}
}

// State returns the current liveness state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the TCP port the server was started on.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the server's v2 API base URL.
func (s *Supervisor) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/v2", s.Port())
}

// Alive reports whether the process reached Ready and has not exited.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Start launches the engine and blocks until it answers HTTP or the ready
// timeout expires. On failure the spawned process is cleaned up before a
// *StartError is returned; no half-started server is left behind.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) error {
	s.mu.Lock()
	if s.state != StateNew {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already started (state %s)", s.state)
	}

	port := opts.Port
	if port == 0 {
		p, err := pickFreePort()
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("picking a free port: %w", err)
		}
		port = p
	}

	args := []string{"-cp", opts.Jar, "org.languagetool.server.HTTPServer", "-p", strconv.Itoa(port)}
	if opts.Config != nil {
		path, err := opts.Config.WriteTemp()
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.configPath = path
		args = append(args, "--config", path)
	}

	cmd := exec.Command(opts.JavaPath, args...)
	cmd.Stdout = s.output
	cmd.Stderr = s.output
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		s.removeConfigLocked()
		s.state = StateFailed
		s.mu.Unlock()
		return &StartError{Err: fmt.Errorf("launching engine: %w", err)}
	}

	s.cmd = cmd
	s.port = port
	s.state = StateStarting
	s.exited = make(chan struct{})
	exited := s.exited
	s.mu.Unlock()

	go func() {
		s.exitErr = cmd.Wait()
		close(exited)
	}()

	timeout := opts.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d/v2", port)
	if err := waitReady(ctx, baseURL, timeout, exited); err != nil {
		s.kill()
		s.mu.Lock()
		s.state = StateFailed
		s.removeConfigLocked()
		output := s.output.String()
		s.mu.Unlock()
		return &StartError{Output: output, Err: err}
	}

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	return nil
}

// Stop terminates the server: graceful signal first, then a forced kill of
// the whole process tree once the grace period passes. Stop never hangs and
// is safe to call repeatedly; the state always ends at Stopped.
func (s *Supervisor) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cmd := s.cmd
		exited := s.exited
		s.state = StateStopping
		s.mu.Unlock()

		if cmd != nil && cmd.Process != nil {
			s.stopErr = terminateTree(cmd.Process, stopGracePeriod, exited)
		}

		s.mu.Lock()
		s.removeConfigLocked()
		s.state = StateStopped
		s.mu.Unlock()
	})
	return s.stopErr
}

// Output returns the captured process output so far.
func (s *Supervisor) Output() string { return s.output.String() }

// kill force-terminates without the graceful grace period; used when start
// fails so no orphaned process survives the error return.
func (s *Supervisor) kill() {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	s.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		terminateTree(cmd.Process, 0, exited)
	}
}

func (s *Supervisor) removeConfigLocked() {
	if s.configPath != "" {
		os.Remove(s.configPath)
		s.configPath = ""
	}
}

// pickFreePort asks the kernel for an unused TCP port.
func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitReady polls the server's languages endpoint with doubling backoff
// until it responds, the process exits, the timeout passes, or ctx is done.
func waitReady(ctx context.Context, baseURL string, timeout time.Duration, exited <-chan struct{}) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: probeTimeout}
	backoff := 100 * time.Millisecond

	for {
		if exited != nil {
			select {
			case <-exited:
				return fmt.Errorf("engine process exited before becoming ready")
			default:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/languages", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("engine not ready after %s", timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

// boundedBuffer captures process output up to a fixed limit so a chatty
// server cannot grow memory without bound.
type boundedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
