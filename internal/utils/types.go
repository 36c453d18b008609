package utils

import (
	"fmt"
	"time"
)

type DownloadConfig struct {
	URL              string
	OutputPath       string
	Workers          int
	ChunkTimeout     time.Duration
	RateLimit        int64 // bytes per second across all chunks, 0 for unlimited
	HTTPClientConfig HTTPClientConfig
}

// Validate rejects configurations that must never reach the network.
func (c DownloadConfig) Validate() error {
	if c.URL == "" {
		return NewError(InvalidArgument, "validate", fmt.Errorf("URL is required"))
	}
	if c.Workers < 1 {
		return NewError(InvalidArgument, "validate", fmt.Errorf("workers must be a positive integer, got %d", c.Workers))
	}
	if c.ChunkTimeout < 0 {
		return NewError(InvalidArgument, "validate", fmt.Errorf("chunk timeout cannot be negative"))
	}
	if c.RateLimit < 0 {
		return NewError(InvalidArgument, "validate", fmt.Errorf("rate limit cannot be negative"))
	}
	return nil
}

// ByteRange is the half-open span [Start, End) of the remote resource.
type ByteRange struct {
	Index int
	Start int64
	End   int64
}

func (r ByteRange) Len() int64 {
	return r.End - r.Start
}

// Header renders the inclusive HTTP form of the range.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

type DownloadPlan struct {
	TotalSize      int64
	SupportsRanges bool
	Workers        int
	Chunks         []ByteRange
}

type ChunkResult struct {
	Range    ByteRange
	Bytes    int64
	Err      error
	Duration time.Duration
}

func (r ChunkResult) Success() bool {
	return r.Err == nil
}

// ProbeResult is the typed view of the metadata response. Nil fields were
// absent from the response.
type ProbeResult struct {
	StatusCode   int
	Size         *int64
	AcceptRanges *string
	FileName     string
}

type ResourceInfo struct {
	Size           int64
	SupportsRanges bool
	FileName       string
}

type DownloadOutcome struct {
	JobID    string
	URL      string
	FileName string
	Size     int64
	Digest   string
	Err      error
	Duration time.Duration
}

func (o DownloadOutcome) Success() bool {
	return o.Err == nil
}

type BatchEntry struct {
	Link    string `yaml:"link"`
	Name    string `yaml:"name,omitempty"`
	Workers int    `yaml:"workers,omitempty"`
}
