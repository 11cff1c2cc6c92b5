package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vodsync/vodsync/constant"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/where"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// MPV is a separate player window driven over mpv's JSON-IPC socket.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits
	box        *outbox
	mu         sync.Mutex // serializes socket writes
}

// StartMPV launches an idle mpv process and waits for its IPC socket.
func StartMPV(binary string) (*MPV, error) {
	if binary == "" {
		binary = "mpv"
	}

	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("generate socket name: %w", err)
	}
	socketPath := filepath.Join(where.Temp(), fmt.Sprintf("%s-%x.sock", constant.App, randomBytes))

	cmd := exec.Command(binary, mpvArgs(socketPath)...)

	// Detach from the parent process group so a terminal signal does not reach mpv first.
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	if err := waitForSocket(socketPath, exited); err != nil {
		select {
		case <-exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(cmd)
		}
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}

	m := attachMPV(socketPath, exited)
	m.cmd = cmd
	return m, nil
}

// attachMPV binds a transport to an already listening socket. exited is closed
// when the player behind the socket is gone.
func attachMPV(socketPath string, exited chan struct{}) *MPV {
	m := &MPV{
		socketPath: socketPath,
		exited:     exited,
		box:        newOutbox(),
	}

	go m.box.run("mpv", m.deliver)
	go func() {
		select {
		case <-exited:
			if m.box.close() {
				log.Infof("mpv: player window closed")
			}
		case <-m.box.done:
		}
	}()

	return m
}

func mpvArgs(socketPath string) []string {
	return []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--force-window=yes",
		"--keep-open=no",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
		fmt.Sprintf("--title=%s", constant.App),
	}
}

func waitForSocket(socketPath string, exited <-chan struct{}) error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socketPath, socketWaitRetries)
}

// mpvCommands translates cmd into IPC commands, in order.
func mpvCommands(cmd Command) [][]any {
	var out [][]any
	volume := func() {
		if cmd.Volume > 0 {
			out = append(out, []any{"set_property", "volume", cmd.Volume})
		}
	}

	switch cmd.Action {
	case Play:
		volume()
		if cmd.TrackID != "" {
			// start applies to the next loaded file
			out = append(out,
				[]any{"set_property", "start", strconv.FormatFloat(cmd.SeekTo, 'f', 3, 64)},
				[]any{"loadfile", fmt.Sprintf(constant.YouTubeWatchURL, cmd.TrackID), "replace"},
			)
		}
		out = append(out, []any{"set_property", "pause", false})
	case Pause:
		out = append(out, []any{"set_property", "pause", true})
	case Seek:
		out = append(out, []any{"seek", cmd.SeekTo, "absolute"})
	case Stop:
		out = append(out, []any{"stop"})
	}
	return out
}

func (m *MPV) deliver(cmd Command) error {
	for _, c := range mpvCommands(cmd) {
		if _, err := m.sendCommand(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MPV) Send(cmd Command) error { return m.box.send(cmd) }

func (m *MPV) Done() <-chan struct{} { return m.box.done }

func (m *MPV) Kind() string { return "mpv" }

// Socket returns the IPC socket path.
func (m *MPV) Socket() string { return m.socketPath }

// Close quits mpv and removes its socket.
func (m *MPV) Close() error {
	if !m.box.close() {
		return nil
	}
	<-m.box.stopped

	if m.cmd == nil {
		return nil
	}

	_, _ = m.sendCommand([]any{"quit"})

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}
