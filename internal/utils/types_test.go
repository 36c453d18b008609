package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDownloadConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DownloadConfig
		wantErr bool
	}{
		{"valid", DownloadConfig{URL: "http://x/y", Workers: 2}, false},
		{"missing url", DownloadConfig{Workers: 2}, true},
		{"zero workers", DownloadConfig{URL: "http://x/y", Workers: 0}, true},
		{"negative workers", DownloadConfig{URL: "http://x/y", Workers: -1}, true},
		{"negative timeout", DownloadConfig{URL: "http://x/y", Workers: 1, ChunkTimeout: -time.Second}, true},
		{"negative rate limit", DownloadConfig{URL: "http://x/y", Workers: 1, RateLimit: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestByteRangeHeader(t *testing.T) {
	r := ByteRange{Index: 1, Start: 250, End: 500}
	if r.Header() != "bytes=250-499" {
		t.Errorf("unexpected header %s", r.Header())
	}
	if r.Len() != 250 {
		t.Errorf("unexpected length %d", r.Len())
	}
}

func TestDownloadErrorKinds(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("wrapped: %w", NewChunkError(ConnectionError, 3, cause))

	if !errors.Is(err, ErrConnection) {
		t.Error("expected errors.Is to match ErrConnection")
	}
	if errors.Is(err, ErrIO) {
		t.Error("did not expect ErrIO to match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to remain reachable")
	}
	if KindOf(err) != ConnectionError {
		t.Errorf("expected ConnectionError, got %s", KindOf(err))
	}
	if KindOf(cause) != 0 {
		t.Errorf("untagged error should have no kind")
	}
	if got := err.Error(); got != "wrapped: fetch: chunk 3: ConnectionError: dial tcp: refused" {
		t.Errorf("unexpected message %q", got)
	}
}
