package splithttp

import (
	"fmt"

	"github.com/tanq16/splitdl/internal/utils"
)

// Plan partitions [0, totalSize) into contiguous ranges. Without range
// support, or with a single worker, the whole resource is one chunk. The
// last chunk absorbs the floor-division remainder; when workers exceed
// totalSize the leading chunks are empty.
func Plan(totalSize int64, workers int, supportsRanges bool) (utils.DownloadPlan, error) {
	if workers < 1 {
		return utils.DownloadPlan{}, utils.NewError(utils.InvalidArgument, "plan", fmt.Errorf("workers must be a positive integer, got %d", workers))
	}
	if totalSize < 0 {
		return utils.DownloadPlan{}, utils.NewError(utils.InvalidResource, "plan", fmt.Errorf("negative size %d", totalSize))
	}
	if !supportsRanges || workers == 1 {
		return utils.DownloadPlan{
			TotalSize:      totalSize,
			SupportsRanges: supportsRanges,
			Workers:        1,
			Chunks:         []utils.ByteRange{{Index: 0, Start: 0, End: totalSize}},
		}, nil
	}
	chunkSize := totalSize / int64(workers)
	chunks := make([]utils.ByteRange, workers)
	for i := range workers {
		chunks[i] = utils.ByteRange{
			Index: i,
			Start: int64(i) * chunkSize,
			End:   int64(i+1) * chunkSize,
		}
	}
	chunks[workers-1].End = totalSize
	return utils.DownloadPlan{
		TotalSize:      totalSize,
		SupportsRanges: true,
		Workers:        workers,
		Chunks:         chunks,
	}, nil
}
