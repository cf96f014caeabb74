package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/e7canasta/camsens/internal/types"
)

func TestCSVLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MotionLog1.csv")

	l, err := OpenLog(path, []string{"Cam1", "Cam2"})
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}

	rows := [][]string{
		{StatusMotion, StatusNoMotion},
		{StatusNoMotion, StatusUnavailable},
	}
	for i, r := range rows {
		if err := l.WriteRow(i+1, r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}

	if err := l.WriteRow(3, []string{StatusMotion}); err == nil {
		t.Error("short row accepted")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := l.WriteRow(4, rows[0]); err == nil {
		t.Error("write after close accepted")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Second,Cam1,Cam2\n1,Motion Detected,No motion\n2,No motion,Unavailable\n"
	if string(got) != want {
		t.Errorf("log content:\n%s\nwant:\n%s", got, want)
	}
	if l.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", l.Rows())
	}
}

func TestCSVLog_RowVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MotionLog1.csv")
	l, err := OpenLog(path, []string{"Cam1"})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.WriteRow(1, []string{StatusNoMotion})

	got, _ := os.ReadFile(path)
	if string(got) != "Second,Cam1\n1,No motion\n" {
		t.Errorf("row not flushed: %q", got)
	}
}

func TestOpenLog_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := OpenLog(filepath.Join(dir, "a.csv"), nil); err == nil {
		t.Error("log without columns accepted")
	}

	existing := filepath.Join(dir, "MotionLog1.csv")
	touch(t, dir, "MotionLog1.csv")
	if _, err := OpenLog(existing, []string{"Cam1"}); err == nil {
		t.Error("existing log overwritten")
	}
}

func TestFiles_OpenLogAllocatesNextName(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultFilesConfig()
	cfg.VideoDir = filepath.Join(dir, "Output Videos")
	cfg.DataDir = filepath.Join(dir, "Output Data")

	files, err := NewFiles(cfg)
	if err != nil {
		t.Fatalf("NewFiles: %v", err)
	}
	for _, d := range []string{cfg.VideoDir, cfg.DataDir} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			t.Fatalf("output dir %s not created", d)
		}
	}

	for want := 1; want <= 2; want++ {
		l, path, err := files.OpenLog([]string{"Cam1"})
		if err != nil {
			t.Fatalf("OpenLog: %v", err)
		}
		l.Close()
		if base := filepath.Base(path); base != "MotionLog"+string(rune('0'+want))+".csv" {
			t.Errorf("log %d named %s", want, base)
		}
	}
}

func TestFiles_DiscardVideo(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultFilesConfig()
	cfg.VideoDir = dir
	cfg.DataDir = dir
	cfg.DiscardVideo = true
	cfg.VideoBase = map[types.CameraID]string{types.Secondary: "Garden"}

	files, err := NewFiles(cfg)
	if err != nil {
		t.Fatal(err)
	}

	v, path, err := files.OpenVideo(types.Primary, VideoParams{Width: 4, Height: 4, FPS: 30, Codec: "mp4v", Color: true})
	if err != nil {
		t.Fatalf("OpenVideo: %v", err)
	}
	if filepath.Base(path) != "Cam1_OutputVideo1.mp4" {
		t.Errorf("path = %s", path)
	}
	if err := v.Write(types.Frame{}); err != nil {
		t.Errorf("discard Write: %v", err)
	}
	v.Close()

	if got := files.VideoBase(types.Secondary); got != "Garden" {
		t.Errorf("VideoBase(secondary) = %s, want Garden", got)
	}
}
