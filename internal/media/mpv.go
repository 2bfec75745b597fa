package media

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrPlayerNotRunning indicates no mpv instance is active.
var ErrPlayerNotRunning = errors.New("player is not running")

// MPV runs one mpv instance at a time and controls it over its JSON IPC socket.
type MPV struct {
	// Argv is the mpv command without the target, e.g. ["mpv", "--no-video"].
	Argv []string
	// SocketPath is where mpv listens for IPC commands.
	SocketPath string
	Logger     *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan struct{}
	target string
}

// NewMPV constructs a player whose IPC socket lives in the runtime dir.
func NewMPV(argv []string, name string) *MPV {
	return &MPV{Argv: argv, SocketPath: SocketPath(name)}
}

// SocketPath is where the player called name listens for IPC commands.
func SocketPath(name string) string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "alkaris-"+name+".sock")
}

// SearchTarget turns a spoken query into an mpv target resolved by yt-dlp.
func SearchTarget(query string) string {
	return "ytdl://ytsearch:" + strings.TrimSpace(query)
}

// Play replaces any running instance with one playing target.
func (m *MPV) Play(_ context.Context, target string) error {
	if len(m.Argv) == 0 {
		return errors.New("player argv cannot be empty")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target == target && m.runningLocked() {
		return nil
	}
	m.stopLocked()

	args := append(append([]string{}, m.Argv[1:]...), "--input-ipc-server="+m.SocketPath, target)
	cmd := exec.Command(m.Argv[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", m.Argv[0], err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	m.cmd = cmd
	m.done = done
	m.target = target
	m.log().Info("player started", "player", m.Argv[0], "target", target)
	return nil
}

// Pause pauses playback.
func (m *MPV) Pause(ctx context.Context) error {
	return m.command(ctx, "set_property", "pause", true)
}

// Resume resumes playback.
func (m *MPV) Resume(ctx context.Context) error {
	return m.command(ctx, "set_property", "pause", false)
}

// TogglePause flips the pause state.
func (m *MPV) TogglePause(ctx context.Context) error {
	return m.command(ctx, "cycle", "pause")
}

// SetVolume sets the player volume in percent.
func (m *MPV) SetVolume(ctx context.Context, percent int) error {
	return m.command(ctx, "set_property", "volume", ClampVolume(percent))
}

// Seek jumps seconds relative to the current position.
func (m *MPV) Seek(ctx context.Context, seconds int) error {
	return m.command(ctx, "seek", seconds, "relative")
}

// Running reports whether an instance is active.
func (m *MPV) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked()
}

// Stop terminates the running instance, if any.
func (m *MPV) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *MPV) runningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *MPV) stopLocked() {
	if !m.runningLocked() {
		m.cmd, m.done, m.target = nil, nil, ""
		return
	}

	_ = m.cmd.Process.Signal(os.Interrupt)
	select {
	case <-m.done:
	case <-time.After(5 * time.Second):
		m.log().Warn("player did not exit; killing", "player", m.Argv[0])
		_ = m.cmd.Process.Kill()
		<-m.done
	}
	m.cmd, m.done, m.target = nil, nil, ""
	_ = os.Remove(m.SocketPath)
}

type ipcReply struct {
	Error string `json:"error"`
}

// command sends one JSON IPC command and waits for its reply.
func (m *MPV) command(ctx context.Context, args ...any) error {
	if !m.Running() {
		return ErrPlayerNotRunning
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	conn, err := dialIPC(ctx, m.SocketPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return fmt.Errorf("encode player command: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("send player command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var reply ipcReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			continue
		}
		// Event lines carry no error field.
		if reply.Error == "" {
			continue
		}
		if reply.Error != "success" {
			return fmt.Errorf("player command %v: %s", args, reply.Error)
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read player reply: %w", err)
	}
	return errors.New("player closed ipc connection without reply")
}

// dialIPC retries until mpv has created its socket.
func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect player ipc %q: %w", path, err)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (m *MPV) log() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}
