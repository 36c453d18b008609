package splithttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
	"golang.org/x/time/rate"
)

const throttleSlice = 16 * 1024

type ChunkRequest struct {
	JobID      string
	URL        string
	OutputPath string
	Range      utils.ByteRange
	Ranged     bool
	TotalSize  int64
	Timeout    time.Duration
	Limiter    *rate.Limiter
}

// FetchChunk retrieves one range and writes it at its offset in the
// preallocated output file through a handle of its own. Every failure is
// terminal for the chunk.
func FetchChunk(ctx context.Context, client utils.HTTPDoer, cr ChunkRequest, sink utils.EventSink) utils.ChunkResult {
	startTime := time.Now()
	sink.Emit(chunkEvent(utils.EventChunkStarted, cr, 0, nil))
	written, err := fetchChunk(ctx, client, cr, sink)
	result := utils.ChunkResult{Range: cr.Range, Bytes: written, Err: err, Duration: time.Since(startTime)}
	if err != nil {
		sink.Emit(chunkEvent(utils.EventChunkFailed, cr, written, err))
	} else {
		sink.Emit(chunkEvent(utils.EventChunkFinished, cr, written, nil))
	}
	return result
}

func fetchChunk(ctx context.Context, client utils.HTTPDoer, cr ChunkRequest, sink utils.EventSink) (int64, error) {
	index := cr.Range.Index
	expected := cr.Range.Len()
	if expected == 0 {
		return 0, nil
	}
	if expected < 0 {
		return 0, utils.NewChunkError(utils.InvalidArgument, index, fmt.Errorf("inverted range %s", cr.Range))
	}
	if cr.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cr.Timeout)
		defer cancel()
	}

	outFile, err := os.OpenFile(cr.OutputPath, os.O_WRONLY, 0)
	if err != nil {
		return 0, utils.NewChunkError(utils.IOError, index, fmt.Errorf("error opening output file: %w", err))
	}
	defer outFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cr.URL, nil)
	if err != nil {
		return 0, utils.NewChunkError(utils.InvalidArgument, index, fmt.Errorf("error creating GET request: %w", err))
	}
	if cr.Ranged {
		req.Header.Set("Range", cr.Range.Header())
	}
	req.Header.Set("Connection", "keep-alive")
	resp, err := client.Do(req)
	if err != nil {
		return 0, utils.NewChunkError(utils.ConnectionError, index, err)
	}
	defer resp.Body.Close()
	if !acceptableStatus(resp.StatusCode, cr) {
		return 0, utils.NewChunkError(utils.ConnectionError, index, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	buffer := make([]byte, min(int64(utils.DefaultBufferSize), expected+1))
	var written int64
	for {
		bytesRead, readErr := resp.Body.Read(buffer)
		if bytesRead > 0 {
			if written+int64(bytesRead) > expected {
				return written, utils.NewChunkError(utils.ConnectionError, index, fmt.Errorf("server sent more than the %d requested bytes", expected))
			}
			if err := throttle(ctx, cr.Limiter, bytesRead); err != nil {
				return written, utils.NewChunkError(utils.ConnectionError, index, fmt.Errorf("rate limit wait: %w", err))
			}
			if _, writeErr := outFile.WriteAt(buffer[:bytesRead], cr.Range.Start+written); writeErr != nil {
				return written, utils.NewChunkError(utils.IOError, index, fmt.Errorf("error writing to output file: %w", writeErr))
			}
			written += int64(bytesRead)
			sink.Emit(chunkEvent(utils.EventChunkProgress, cr, int64(bytesRead), nil))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return written, utils.NewChunkError(utils.ConnectionError, index, fmt.Errorf("error reading response body: %w", readErr))
		}
	}
	if written != expected {
		return written, utils.NewChunkError(utils.ConnectionError, index, fmt.Errorf("size mismatch: expected %d bytes, got %d", expected, written))
	}
	if err := outFile.Close(); err != nil {
		return written, utils.NewChunkError(utils.IOError, index, fmt.Errorf("error closing output file: %w", err))
	}
	return written, nil
}

// throttle blocks until the limiter grants n bytes. WaitN rejects requests
// above the burst size, so n is taken in slices.
func throttle(ctx context.Context, limiter *rate.Limiter, n int) error {
	if limiter == nil {
		return nil
	}
	for n > 0 {
		slice := min(n, throttleSlice)
		if err := limiter.WaitN(ctx, slice); err != nil {
			return err
		}
		n -= slice
	}
	return nil
}

// NewLimiter returns nil when bytesPerSecond is not positive.
func NewLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), int(max(bytesPerSecond, throttleSlice)))
}

// A server may answer a ranged request with 200 only when the range is the
// whole resource, because the body then holds exactly the requested bytes.
func acceptableStatus(status int, cr ChunkRequest) bool {
	if !cr.Ranged {
		return status == http.StatusOK
	}
	if status == http.StatusPartialContent {
		return true
	}
	return status == http.StatusOK && cr.Range.Start == 0 && cr.Range.End == cr.TotalSize
}

func chunkEvent(kind utils.EventKind, cr ChunkRequest, bytes int64, err error) utils.Event {
	return utils.Event{
		Kind:     kind,
		JobID:    cr.JobID,
		FileName: cr.OutputPath,
		Chunk:    cr.Range.Index,
		Start:    cr.Range.Start,
		End:      cr.Range.End,
		Bytes:    bytes,
		Total:    cr.TotalSize,
		Ranged:   cr.Ranged,
		Err:      err,
		Time:     time.Now(),
	}
}
