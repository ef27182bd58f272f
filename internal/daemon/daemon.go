package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/engram/engram/internal/logging"
)

var log = logging.GetLogger("daemon")

const (
	PIDFileName   = "engram.pid"
	StateFileName = "engram.state"
)

// State is the daemon state persisted to disk across `serve` invocations.
type State struct {
	PID        int       `json:"pid"`
	StartTime  time.Time `json:"start_time"`
	Version    string    `json:"version"`
	HTTPHost   string    `json:"http_host"`
	HTTPPort   int       `json:"http_port"`
	MCPEnabled bool      `json:"mcp_enabled"`
}

// Status is the current daemon status, as reported by `engram status`.
type Status struct {
	Running    bool          `json:"running"`
	PID        int           `json:"pid,omitempty"`
	Uptime     time.Duration `json:"uptime,omitempty"`
	Version    string        `json:"version,omitempty"`
	HTTPHost   string        `json:"http_host,omitempty"`
	HTTPPort   int           `json:"http_port,omitempty"`
	MCPEnabled bool          `json:"mcp_enabled,omitempty"`
}

// Daemon manages the engram serve process lifecycle: PID file, state
// file, and SIGTERM→SIGKILL stop.
type Daemon struct {
	configDir string
	version   string
}

// New creates a new Daemon instance rooted at configDir.
func New(configDir, version string) *Daemon {
	return &Daemon{configDir: configDir, version: version}
}

// PIDPath returns the path to the PID file.
func (d *Daemon) PIDPath() string {
	return filepath.Join(d.configDir, PIDFileName)
}

// StatePath returns the path to the state file.
func (d *Daemon) StatePath() string {
	return filepath.Join(d.configDir, StateFileName)
}

// WritePID writes the current process PID to the PID file.
func (d *Daemon) WritePID() error {
	return os.WriteFile(d.PIDPath(), []byte(strconv.Itoa(os.Getpid())), 0644)
}

// ReadPID reads the PID from the PID file.
func (d *Daemon) ReadPID() (int, error) {
	data, err := os.ReadFile(d.PIDPath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// RemovePID removes the PID file.
func (d *Daemon) RemovePID() error {
	return os.Remove(d.PIDPath())
}

// WriteState writes the daemon state to disk.
func (d *Daemon) WriteState(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(d.StatePath(), data, 0644)
}

// ReadState reads the daemon state from disk.
func (d *Daemon) ReadState() (*State, error) {
	data, err := os.ReadFile(d.StatePath())
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// RemoveState removes the state file.
func (d *Daemon) RemoveState() error {
	return os.Remove(d.StatePath())
}

// IsRunning reports whether the process named by the PID file is alive.
func (d *Daemon) IsRunning() bool {
	pid, err := d.ReadPID()
	if err != nil {
		return false
	}
	return d.isProcessRunning(pid)
}

func (d *Daemon) isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// Status returns the current daemon status, cleaning up a stale PID/state
// pair if the recorded process is no longer alive.
func (d *Daemon) Status() *Status {
	status := &Status{Running: false}

	pid, err := d.ReadPID()
	if err != nil {
		return status
	}

	if !d.isProcessRunning(pid) {
		d.RemovePID()
		d.RemoveState()
		return status
	}

	status.Running = true
	status.PID = pid

	if state, err := d.ReadState(); err == nil {
		status.Version = state.Version
		status.HTTPHost = state.HTTPHost
		status.HTTPPort = state.HTTPPort
		status.MCPEnabled = state.MCPEnabled
		status.Uptime = time.Since(state.StartTime)
	}

	return status
}

// Start records the running daemon's PID and state. Call this from the
// process that will actually serve, not from a launcher.
func (d *Daemon) Start(httpHost string, httpPort int, mcpEnabled bool) error {
	log.Info("starting daemon", "http_host", httpHost, "http_port", httpPort, "mcp_enabled", mcpEnabled)

	if d.IsRunning() {
		log.Warn("daemon is already running")
		return fmt.Errorf("daemon is already running")
	}

	if err := d.WritePID(); err != nil {
		log.Error("failed to write PID file", "error", err)
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	state := &State{
		PID:        os.Getpid(),
		StartTime:  time.Now(),
		Version:    d.version,
		HTTPHost:   httpHost,
		HTTPPort:   httpPort,
		MCPEnabled: mcpEnabled,
	}

	if err := d.WriteState(state); err != nil {
		d.RemovePID()
		log.Error("failed to write state file", "error", err)
		return fmt.Errorf("failed to write state file: %w", err)
	}

	log.Info("daemon started", "pid", state.PID, "version", d.version)
	return nil
}

// Stop sends SIGTERM to the running daemon, escalating to SIGKILL if it
// hasn't exited within 5 seconds.
func (d *Daemon) Stop() error {
	log.Info("stopping daemon")

	pid, err := d.ReadPID()
	if err != nil {
		log.Debug("no PID file found")
		return fmt.Errorf("daemon is not running (no PID file)")
	}

	if !d.isProcessRunning(pid) {
		log.Debug("stale PID file, cleaning up", "pid", pid)
		d.RemovePID()
		d.RemoveState()
		return fmt.Errorf("daemon is not running (stale PID file)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		log.Error("failed to find process", "error", err, "pid", pid)
		return fmt.Errorf("failed to find process: %w", err)
	}

	log.Debug("sending SIGTERM", "pid", pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		log.Error("failed to send SIGTERM", "error", err)
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	for i := 0; i < 50; i++ { // 5 second timeout
		if !d.isProcessRunning(pid) {
			d.RemovePID()
			d.RemoveState()
			log.Info("daemon stopped gracefully", "pid", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	log.Warn("daemon did not stop gracefully, sending SIGKILL", "pid", pid)
	if err := process.Signal(syscall.SIGKILL); err != nil {
		log.Error("failed to send SIGKILL", "error", err)
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	d.RemovePID()
	d.RemoveState()
	log.Info("daemon killed", "pid", pid)
	return nil
}

// Cleanup removes the PID and state files; call on graceful shutdown.
func (d *Daemon) Cleanup() {
	d.RemovePID()
	d.RemoveState()
}

// Daemonize re-execs the current binary with args detached into its own
// process group and returns immediately in the parent. The child is a new
// process that starts from main; the bool result is always false.
func (d *Daemon) Daemonize(args []string) (bool, error) {
	if d.IsRunning() {
		return false, fmt.Errorf("daemon is already running")
	}

	executable, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("failed to start daemon: %w", err)
	}

	return false, nil // parent returns; the re-exec'd child runs as the daemon
}

// ProcessInfo describes one running engram process.
type ProcessInfo struct {
	PID     int           `json:"pid"`
	Type    string        `json:"type"`
	Uptime  time.Duration `json:"uptime"`
	Version string        `json:"version"`
}

// ListProcesses returns the running engram daemon, if any.
func (d *Daemon) ListProcesses() ([]ProcessInfo, error) {
	var processes []ProcessInfo
	if status := d.Status(); status.Running {
		processes = append(processes, ProcessInfo{
			PID:     status.PID,
			Type:    "daemon",
			Uptime:  status.Uptime,
			Version: status.Version,
		})
	}
	return processes, nil
}

// KillAll stops the daemon if running, returning the number stopped.
func (d *Daemon) KillAll() (int, error) {
	if d.IsRunning() {
		if err := d.Stop(); err == nil {
			return 1, nil
		}
	}
	return 0, nil
}
