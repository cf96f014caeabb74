// Package command turns operator input into session commands.
//
// Sources:
//
//	ReadKeys     single-key commands from a terminal or pipe ('r', 'm', 'q'/ESC)
//	FromSignals  SIGINT/SIGTERM become Stop
//	Schedule     timed commands for headless runs
//
// Merge fans several sources into the one channel the session loop polls.
package command

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Command is an operator request
type Command int

const (
	// StartRecording moves an idle session to recording
	StartRecording Command = iota + 1
	// StartSensing adds motion sensing to a recording session
	StartSensing
	// Stop terminates the session
	Stop
)

// String returns a human-readable string representation of the command
func (c Command) String() string {
	switch c {
	case StartRecording:
		return "start-recording"
	case StartSensing:
		return "start-sensing"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

const keyEscape = 0x1b

// ParseKey maps a key press to a command
func ParseKey(b byte) (Command, bool) {
	switch b {
	case 'r', 'R':
		return StartRecording, true
	case 'm', 'M':
		return StartSensing, true
	case 'q', 'Q', keyEscape:
		return Stop, true
	default:
		return 0, false
	}
}

// ReadKeys emits a command for every recognised byte read from r.
// The channel closes when r is exhausted or ctx is done.
func ReadKeys(ctx context.Context, r io.Reader) <-chan Command {
	out := make(chan Command, 4)
	go func() {
		defer close(out)
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				if err != io.EOF {
					slog.Warn("command: input read failed", "error", err)
				}
				return
			}
			cmd, ok := ParseKey(b)
			if !ok {
				continue
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// FromSignals emits Stop on SIGINT or SIGTERM
func FromSignals(ctx context.Context) <-chan Command {
	out := make(chan Command, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		defer close(out)
		for {
			select {
			case sig := <-sigChan:
				slog.Info("command: received shutdown signal", "signal", sig.String())
				select {
				case out <- Stop:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Timed is one scheduled command
type Timed struct {
	After   time.Duration
	Command Command
}

// Schedule emits each command once its delay, measured from the call, has
// passed. Entries are emitted in order of delay.
func Schedule(ctx context.Context, entries ...Timed) <-chan Command {
	out := make(chan Command, len(entries))
	go func() {
		defer close(out)
		start := time.Now()
		for _, e := range sortedByDelay(entries) {
			wait := time.Until(start.Add(e.After))
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			select {
			case out <- e.Command:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func sortedByDelay(entries []Timed) []Timed {
	out := append([]Timed(nil), entries...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].After < out[j-1].After; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Merge fans in several command channels. The result closes once every
// input has closed or ctx is done.
func Merge(ctx context.Context, inputs ...<-chan Command) <-chan Command {
	out := make(chan Command, len(inputs))
	var wg sync.WaitGroup
	for _, in := range inputs {
		if in == nil {
			continue
		}
		wg.Add(1)
		go func(in <-chan Command) {
			defer wg.Done()
			for {
				select {
				case cmd, ok := <-in:
					if !ok {
						return
					}
					select {
					case out <- cmd:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(in)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
