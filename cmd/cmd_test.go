package cmd

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
)

var payload = bytes.Repeat([]byte("0123456789abcdef"), 512)

func newServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		if strings.HasSuffix(r.URL.Path, "/missing.bin") {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestRootDownload(t *testing.T) {
	server := newServer(t, nil)
	t.Chdir(t.TempDir())

	sum := sha256.Sum256(payload)
	err := execute(t, server.URL+"/data.bin", "-w", "4", "-q", "--verify", "sha256:"+hex.EncodeToString(sum[:]))
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	data, err := os.ReadFile("data.bin")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("downloaded content mismatch")
	}
}

func TestRootExplicitName(t *testing.T) {
	server := newServer(t, nil)
	dir := t.TempDir()
	target := filepath.Join(dir, "named.out")
	if err := execute(t, server.URL+"/data.bin", "-q", "--name", target); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if fi, err := os.Stat(target); err != nil || fi.Size() != int64(len(payload)) {
		t.Errorf("expected %s with %d bytes, stat=%v err=%v", target, len(payload), fi, err)
	}
}

func TestRootRejectsInvalidWorkers(t *testing.T) {
	var requests atomic.Int32
	server := newServer(t, &requests)
	for _, value := range []string{"0", "-2", "two"} {
		t.Run(value, func(t *testing.T) {
			if err := execute(t, server.URL+"/data.bin", "-q", "--workers", value); err == nil {
				t.Errorf("expected an error for --workers %s", value)
			}
		})
	}
	if requests.Load() != 0 {
		t.Errorf("expected no network activity, got %d requests", requests.Load())
	}
}

func TestRootChecksumMismatch(t *testing.T) {
	server := newServer(t, nil)
	t.Chdir(t.TempDir())
	if err := execute(t, server.URL+"/data.bin", "-q", "--verify", "sha256:00"); err == nil {
		t.Error("expected checksum mismatch error")
	}
}

func TestRootInvalidResource(t *testing.T) {
	server := newServer(t, nil)
	t.Chdir(t.TempDir())
	err := execute(t, server.URL+"/missing.bin", "-q")
	if !errors.Is(err, utils.ErrInvalidResource) {
		t.Fatalf("expected InvalidResource, got %v", err)
	}
	if _, statErr := os.Stat("missing.bin"); !os.IsNotExist(statErr) {
		t.Errorf("expected no file to be created")
	}
}

func TestBuildBatchConfigs(t *testing.T) {
	workers = 3
	batch := BatchFile{Downloads: []utils.BatchEntry{
		{Link: "http://example.com/a.bin"},
		{Link: "http://example.com/b.bin", Name: "b-renamed.bin", Workers: 8},
	}}
	configs, err := buildBatchConfigs(batch, utils.HTTPClientConfig{UserAgent: "x"})
	if err != nil {
		t.Fatalf("buildBatchConfigs failed: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if configs[0].Workers != 3 || configs[1].Workers != 8 || configs[1].OutputPath != "b-renamed.bin" {
		t.Errorf("unexpected configs: %+v", configs)
	}
	if configs[0].HTTPClientConfig.UserAgent != "x" {
		t.Errorf("HTTP config not propagated")
	}

	if _, err := buildBatchConfigs(BatchFile{}, utils.HTTPClientConfig{}); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Errorf("expected InvalidArgument for empty batch, got %v", err)
	}
	bad := BatchFile{Downloads: []utils.BatchEntry{{Link: "http://example.com/a"}, {Link: ""}}}
	if _, err := buildBatchConfigs(bad, utils.HTTPClientConfig{}); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Errorf("expected InvalidArgument for empty link, got %v", err)
	}
	bad = BatchFile{Downloads: []utils.BatchEntry{{Link: "http://example.com/a", Workers: -1}}}
	if _, err := buildBatchConfigs(bad, utils.HTTPClientConfig{}); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Errorf("expected InvalidArgument for negative workers, got %v", err)
	}
}

func TestBatchCommand(t *testing.T) {
	server := newServer(t, nil)
	dir := t.TempDir()
	t.Chdir(dir)
	batch := "downloads:\n" +
		"  - link: " + server.URL + "/one.bin\n" +
		"    workers: 3\n" +
		"  - link: " + server.URL + "/two.bin\n" +
		"    name: second.bin\n"
	if err := os.WriteFile("batch.yaml", []byte(batch), 0644); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "batch", "batch.yaml", "-q", "-P", "2"); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	for _, name := range []string{"one.bin", "second.bin"} {
		data, err := os.ReadFile(name)
		if err != nil || !bytes.Equal(data, payload) {
			t.Errorf("%s: unexpected content (err=%v)", name, err)
		}
	}
}

func TestBatchCommandReportsFailures(t *testing.T) {
	server := newServer(t, nil)
	t.Chdir(t.TempDir())
	batch := "downloads:\n" +
		"  - link: " + server.URL + "/one.bin\n" +
		"  - link: " + server.URL + "/missing.bin\n"
	if err := os.WriteFile("batch.yaml", []byte(batch), 0644); err != nil {
		t.Fatal(err)
	}
	err := execute(t, "batch", "batch.yaml", "-q")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 downloads failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if _, err := os.Stat("one.bin"); err != nil {
		t.Errorf("successful entry should still be downloaded: %v", err)
	}
}

func TestRootRejectsNegativeRateLimit(t *testing.T) {
	var requests atomic.Int32
	server := newServer(t, &requests)
	t.Chdir(t.TempDir())
	err := execute(t, server.URL+"/data.bin", "-q", "--limit-rate", "-5")
	if !errors.Is(err, utils.ErrInvalidArgument) {
		t.Fatalf("expected InvalidArgument for a negative rate, got %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("expected no network activity, got %d requests", requests.Load())
	}
	if _, statErr := os.Stat("data.bin"); !os.IsNotExist(statErr) {
		t.Errorf("expected no file to be created")
	}
}

func TestRootRateLimitedDownload(t *testing.T) {
	server := newServer(t, nil)
	t.Chdir(t.TempDir())
	if err := execute(t, server.URL+"/data.bin", "-q", "-w", "2", "--limit-rate", "1048576"); err != nil {
		t.Fatalf("download failed: %v", err)
	}
	data, err := os.ReadFile("data.bin")
	if err != nil || !bytes.Equal(data, payload) {
		t.Errorf("unexpected content (err=%v)", err)
	}
}

func TestSharedHTTPConfig(t *testing.T) {
	tests := []struct {
		name    string
		workers []int
		tuned   bool
	}{
		{"all small", []int{1, 2, 5}, false},
		{"one busy entry", []int{2, 16, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var configs []utils.DownloadConfig
			for _, w := range tt.workers {
				configs = append(configs, utils.DownloadConfig{Workers: w, HTTPClientConfig: utils.HTTPClientConfig{UserAgent: "x"}})
			}
			got := sharedHTTPConfig(configs)
			if got.HighThreadMode != tt.tuned {
				t.Errorf("expected HighThreadMode=%v, got %v", tt.tuned, got.HighThreadMode)
			}
			if got.UserAgent != "x" {
				t.Errorf("HTTP config not carried over: %+v", got)
			}
		})
	}
}
