package command

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan Command, timeout time.Duration) []Command {
	t.Helper()
	var got []Command
	deadline := time.After(timeout)
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, cmd)
		case <-deadline:
			t.Fatalf("channel not closed within %v (got %v)", timeout, got)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		key  byte
		want Command
		ok   bool
	}{
		{'r', StartRecording, true},
		{'R', StartRecording, true},
		{'m', StartSensing, true},
		{'q', Stop, true},
		{0x1b, Stop, true},
		{'x', 0, false},
		{'\n', 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseKey(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKey(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadKeys(t *testing.T) {
	ch := ReadKeys(context.Background(), strings.NewReader("r\nxm\nq\n"))
	got := collect(t, ch, time.Second)

	want := []Command{StartRecording, StartSensing, Stop}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSchedule(t *testing.T) {
	start := time.Now()
	ch := Schedule(context.Background(),
		Timed{After: 30 * time.Millisecond, Command: StartSensing},
		Timed{After: 10 * time.Millisecond, Command: StartRecording},
	)
	got := collect(t, ch, time.Second)

	if len(got) != 2 || got[0] != StartRecording || got[1] != StartSensing {
		t.Errorf("got %v, want [start-recording start-sensing]", got)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("schedule finished after %v, before the last delay", elapsed)
	}
}

func TestSchedule_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Schedule(ctx, Timed{After: time.Hour, Command: Stop})
	cancel()
	if got := collect(t, ch, time.Second); len(got) != 0 {
		t.Errorf("cancelled schedule emitted %v", got)
	}
}

func TestMerge(t *testing.T) {
	a := make(chan Command, 1)
	b := make(chan Command, 1)
	a <- StartRecording
	b <- Stop
	close(a)
	close(b)

	got := collect(t, Merge(context.Background(), a, nil, b), time.Second)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 commands", got)
	}
	seen := map[Command]bool{}
	for _, c := range got {
		seen[c] = true
	}
	if !seen[StartRecording] || !seen[Stop] {
		t.Errorf("missing commands: %v", got)
	}
}

func TestCommandString(t *testing.T) {
	if StartSensing.String() != "start-sensing" || Command(0).String() != "unknown" {
		t.Error("unexpected command names")
	}
}
