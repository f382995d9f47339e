package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"

	"github.com/runger/sk/internal/render"
)

// Placeholders substituted in command callback arguments.
const (
	queryPlaceholder = "{q}"
	inputPlaceholder = "{}"
)

// maxStderrBytes bounds the stderr kept for error messages.
const maxStderrBytes = 4096

func compileCommand(src string) ([]string, error) {
	argv, err := shlex.Split(src)
	if err != nil {
		return nil, fmt.Errorf("sh: %w", err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCallback
	}
	return argv, nil
}

// runCommand starts the command and returns its stdout as a line stream.
// The process is killed when ctx is cancelled; closing the stream waits for
// it and reports a non-zero exit together with the tail of stderr.
func runCommand(ctx context.Context, argv []string, args []any, in Input) (Result, error) {
	query := ""
	if len(args) > 0 {
		query = render.Text(args[0])
	}
	inputText := ""
	v, hasInput := in.Value()
	if hasInput {
		inputText = render.Text(v)
	}

	expanded := make([]string, len(argv))
	for i, a := range argv {
		a = strings.ReplaceAll(a, queryPlaceholder, query)
		expanded[i] = strings.ReplaceAll(a, inputPlaceholder, inputText)
	}

	cmd := exec.CommandContext(ctx, expanded[0], expanded[1:]...)
	if hasInput {
		stdin, err := stdinFor(v)
		if err != nil {
			return Result{}, err
		}
		cmd.Stdin = stdin
	}
	stderr := &tailBuffer{max: maxStderrBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("sh: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("sh: %w", err)
	}
	return Lines(&processStream{ReadCloser: stdout, cmd: cmd, ctx: ctx, stderr: stderr}), nil
}

// stdinFor encodes the input for a command: strings verbatim, everything
// else as JSON.
func stdinFor(v any) (io.Reader, error) {
	if s, ok := v.(string); ok {
		return strings.NewReader(s), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sh: encode input: %w", err)
	}
	return bytes.NewReader(data), nil
}

type processStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	ctx    context.Context
	stderr *tailBuffer

	once sync.Once
	err  error
}

func (p *processStream) Close() error {
	p.once.Do(func() {
		_ = p.ReadCloser.Close()
		err := p.cmd.Wait()
		if err == nil || p.ctx.Err() != nil {
			return
		}
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			p.err = fmt.Errorf("sh: %s: %w: %s", p.cmd.Args[0], err, msg)
			return
		}
		p.err = fmt.Errorf("sh: %s: %w", p.cmd.Args[0], err)
	})
	return p.err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
