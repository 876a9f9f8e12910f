package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// handshakeTimeout bounds the initial uci/uciok exchange; a binary that is
// not a UCI engine never answers.
const handshakeTimeout = 10 * time.Second

// UCI is a single engine process driven over the UCI text protocol.
// It is not safe for concurrent use; the Pool hands each instance to one
// caller at a time.
type UCI struct {
	cfg    Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	name   string
}

var _ Evaluator = (*UCI)(nil)

// NewUCI launches the engine binary and completes the UCI handshake.
func NewUCI(cfg Config) (*UCI, error) {
	cmd := exec.Command(cfg.BinaryPath)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine: opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine: opening stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("engine: starting %s: %w", cfg.BinaryPath, err)
	}

	u := &UCI{
		cfg:    cfg,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewScanner(stdout),
	}
	// engine output can exceed the default scanner buffer on long PVs
	u.stdout.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if err := u.handshake(); err != nil {
		u.kill()
		return nil, err
	}
	return u, nil
}

func (u *UCI) handshake() error {
	deadline := time.Now().Add(handshakeTimeout)

	if err := u.send("uci"); err != nil {
		return err
	}
	for {
		line, err := u.readLine()
		if err != nil {
			return fmt.Errorf("engine: handshake: %w", err)
		}
		if name, ok := strings.CutPrefix(line, "id name "); ok {
			u.name = name
		}
		if line == "uciok" {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("engine: no uciok from %s within %s", u.cfg.BinaryPath, handshakeTimeout)
		}
	}

	if u.cfg.MultiPV > 1 {
		if err := u.send(fmt.Sprintf("setoption name MultiPV value %d", u.cfg.MultiPV)); err != nil {
			return err
		}
	}
	if u.cfg.Threads > 0 {
		if err := u.send(fmt.Sprintf("setoption name Threads value %d", u.cfg.Threads)); err != nil {
			return err
		}
	}
	return u.sync()
}

// sync flushes pending commands with isready/readyok.
func (u *UCI) sync() error {
	if err := u.send("isready"); err != nil {
		return err
	}
	for {
		line, err := u.readLine()
		if err != nil {
			return fmt.Errorf("engine: waiting for readyok: %w", err)
		}
		if line == "readyok" {
			return nil
		}
	}
}

// Evaluate searches the FEN with the configured movetime and multipv.
func (u *UCI) Evaluate(ctx context.Context, fen string) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}

	if err := u.send("position fen " + fen); err != nil {
		return Evaluation{}, err
	}
	if err := u.send(fmt.Sprintf("go movetime %d", u.cfg.MoveTime.Milliseconds())); err != nil {
		return Evaluation{}, err
	}

	// Keep only the deepest iteration per multipv slot; the engine prints
	// one info line per slot per depth.
	lines := map[int]Line{}
	for {
		raw, err := u.readLine()
		if err != nil {
			return Evaluation{}, fmt.Errorf("engine: reading search output: %w", err)
		}
		if strings.HasPrefix(raw, "bestmove") {
			break
		}
		line, ok := parseInfoLine(raw)
		if !ok {
			continue
		}
		lines[line.MultiPV] = line
	}

	eval := Evaluation{}
	for pv := 1; pv <= u.cfg.MultiPV; pv++ {
		if l, ok := lines[pv]; ok {
			eval.Lines = append(eval.Lines, l)
		}
	}
	return eval, nil
}

// parseInfoLine extracts multipv, score and pv from one UCI info line.
// Lines without a pv (currmove progress, nps-only updates) are skipped.
func parseInfoLine(raw string) (Line, bool) {
	if !strings.HasPrefix(raw, "info ") {
		return Line{}, false
	}
	fields := strings.Fields(raw)

	line := Line{MultiPV: 1}
	var haveScore, havePV bool
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					line.MultiPV = n
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				v, err := strconv.Atoi(fields[i+2])
				if err == nil {
					switch fields[i+1] {
					case "cp":
						line.Score = Score{CP: v}
						haveScore = true
					case "mate":
						line.Score = Score{Mate: v}
						haveScore = true
					}
				}
				i += 2
			}
		case "pv":
			line.Moves = fields[i+1:]
			havePV = true
			i = len(fields)
		}
	}
	return line, haveScore && havePV
}

// Close shuts the engine down, escalating to SIGKILL if quit is ignored.
func (u *UCI) Close() error {
	if err := u.send("quit"); err != nil {
		u.kill()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- u.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		u.kill()
	}
	return nil
}

func (u *UCI) send(cmd string) error {
	if _, err := io.WriteString(u.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("engine: sending %q: %w", cmd, err)
	}
	return nil
}

func (u *UCI) readLine() (string, error) {
	if !u.stdout.Scan() {
		if err := u.stdout.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(u.stdout.Text()), nil
}

func (u *UCI) kill() {
	if u.cmd.Process != nil {
		_ = u.cmd.Process.Kill()
	}
	_ = u.cmd.Wait()
}
