package capture

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ExecFrameSource grabs frames by running a command that writes one
// compressed image to stdout per invocation, e.g.
//
//	ffmpeg -f v4l2 -i /dev/video0 -frames:v 1 -f image2 -
//
// It keeps the session decoupled from camera APIs the way the playback
// side can fall back to an external player.
type ExecFrameSource struct {
	// Path is the command to run.
	Path string

	// Args are passed to the command.
	Args []string

	// Timeout bounds one grab. Default: 2s.
	Timeout time.Duration
}

// Grab runs the command and returns its stdout as the frame bytes.
// Empty output means no frame was available this tick.
func (s *ExecFrameSource) Grab(ctx context.Context) ([]byte, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("frame command %q: %w", s.Path, err)
	}
	if out.Len() == 0 {
		return nil, ErrNoFrame
	}
	return out.Bytes(), nil
}
