package daemonrun_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"reportwatch/internal/daemonrun"
	"reportwatch/internal/ipc"
	"reportwatch/internal/testsupport"
)

func TestRunServesUntilCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemonrun.Run(ctx, cfg, daemonrun.Options{}) }()

	var client *ipc.Client
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c, err := ipc.Dial(cfg.Paths.SocketPath)
		if err == nil {
			client = c
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if client == nil {
		cancel()
		t.Fatal("daemon socket never came up")
	}

	status, err := client.Status()
	_ = client.Close()
	if err != nil || !status.Running {
		cancel()
		t.Fatalf("Status = %+v, %v", status, err)
	}
	if !strings.HasPrefix(filepath.Base(status.LogPath), "reportwatch-") {
		t.Fatalf("unexpected log path %q", status.LogPath)
	}

	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil || strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q, %v", data, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("pid file not removed: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("socket not removed: %v", err)
	}
	logData, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "reportwatch.log"))
	if err != nil || !strings.Contains(string(logData), `"msg":"reportwatch daemon started"`) {
		t.Fatalf("log pointer content missing start line: %v", err)
	}
}
