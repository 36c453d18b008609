package output

import (
	"github.com/rs/zerolog"
	"github.com/tanq16/splitdl/internal/utils"
)

// LogSink writes download events as structured zerolog lines.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(e utils.Event) {
	log := s.log.With().Str("job", e.JobID).Logger()
	switch e.Kind {
	case utils.EventProbed:
		ev := log.Info().Str("file", e.FileName).Int64("size", e.Total).Bool("ranged", e.Ranged)
		if !e.Ranged {
			ev.Msg("URL does not allow range access, downloading with a single worker")
			return
		}
		ev.Msg("URL allows partial download")
	case utils.EventPlanned:
		if e.Workers > 1 {
			log.Info().Int("workers", e.Workers).Int64("chunkSize", e.Total/int64(e.Workers)).Msg("Starting download in multi-worker mode")
		} else {
			log.Info().Msg("Starting download in single-worker mode")
		}
	case utils.EventPreallocated:
		log.Debug().Str("file", e.FileName).Int64("size", e.Total).Msg("Output file preallocated")
	case utils.EventChunkStarted:
		log.Debug().Int("chunk", e.Chunk).Int64("start", e.Start).Int64("end", e.End).Msg("Chunk starting")
	case utils.EventChunkProgress:
		log.Trace().Int("chunk", e.Chunk).Int64("bytes", e.Bytes).Msg("Chunk progress")
	case utils.EventChunkFinished:
		log.Info().Int("chunk", e.Chunk).Int64("bytes", e.Bytes).Msg("Chunk finished download")
	case utils.EventChunkFailed:
		log.Error().Err(e.Err).Int("chunk", e.Chunk).Int64("start", e.Start).Int64("end", e.End).Msg("Chunk failed")
	case utils.EventCompleted:
		log.Info().Str("file", e.FileName).Str("sha256", e.Digest).Msg("Download completed")
	case utils.EventFailed:
		log.Error().Err(e.Err).Str("file", e.FileName).Msg("Download failed")
	}
}

// Tee fans each event out to every sink in order.
type Tee []utils.EventSink

func (t Tee) Emit(e utils.Event) {
	for _, sink := range t {
		if sink != nil {
			sink.Emit(e)
		}
	}
}
