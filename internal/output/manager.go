package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
)

type JobOutput struct {
	ID           string
	FileName     string
	Status       string
	Total        int64
	Downloaded   int64
	Workers      int
	ChunksDone   int
	ChunksFailed int
	Digest       string
	Error        error
	StartTime    time.Time
	LastUpdated  time.Time
	Index        int
}

// Manager renders live per-download progress from events. It is a
// utils.EventSink and may be fed from many goroutines.
type Manager struct {
	out         io.Writer
	interactive bool
	jobs        map[string]*JobOutput
	mutex       sync.RWMutex
	numLines    int
	jobCount    int
	doneCh      chan struct{}
	displayTick time.Duration
	displayWg   sync.WaitGroup
}

// NewManager writes to out. Live redraws only happen when interactive is set;
// otherwise only the final summary is printed.
func NewManager(out io.Writer, interactive bool) *Manager {
	return &Manager{
		out:         out,
		interactive: interactive,
		jobs:        make(map[string]*JobOutput),
		doneCh:      make(chan struct{}),
		displayTick: 200 * time.Millisecond,
	}
}

// NewStdoutManager enables live redraws when stdout is a terminal.
func NewStdoutManager() *Manager {
	return NewManager(os.Stdout, isTerminal(os.Stdout))
}

func (m *Manager) Interactive() bool {
	return m.interactive
}

func (m *Manager) Emit(e utils.Event) {
	if e.JobID == "" {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	job, exists := m.jobs[e.JobID]
	if !exists {
		m.jobCount++
		job = &JobOutput{ID: e.JobID, Status: "pending", StartTime: e.Time, Index: m.jobCount}
		m.jobs[e.JobID] = job
	}
	if e.FileName != "" {
		job.FileName = e.FileName
	}
	job.LastUpdated = e.Time
	switch e.Kind {
	case utils.EventProbed:
		job.Total = e.Total
	case utils.EventPlanned:
		job.Workers = e.Workers
		job.Status = "active"
	case utils.EventChunkProgress:
		job.Downloaded += e.Bytes
	case utils.EventChunkFinished:
		job.ChunksDone++
	case utils.EventChunkFailed:
		job.ChunksFailed++
	case utils.EventCompleted:
		job.Status = "success"
		job.Digest = e.Digest
	case utils.EventFailed:
		job.Status = "error"
		job.Error = e.Err
	}
}

func (m *Manager) Job(id string) (JobOutput, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return JobOutput{}, false
	}
	return *job, true
}

func (m *Manager) sortedJobs() []*JobOutput {
	jobs := make([]*JobOutput, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Index < jobs[j].Index
	})
	return jobs
}

func (m *Manager) statusIndicator(status string) string {
	switch status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) renderJob(job *JobOutput, now time.Time) []string {
	end := now
	if job.Status == "success" || job.Status == "error" {
		end = job.LastUpdated
	}
	elapsed := end.Sub(job.StartTime).Round(time.Second)
	indicator := m.statusIndicator(job.Status)
	name := job.FileName
	if name == "" {
		name = job.ID
	}
	switch job.Status {
	case "success":
		return []string{
			fmt.Sprintf("  %s %s %s", indicator, debugStyle.Render(elapsed.String()), successStyle.Render(fmt.Sprintf("Completed %s (%s)", name, FormatBytes(uint64(job.Total))))),
			"      " + streamStyle.Render("sha256 "+job.Digest),
		}
	case "error":
		return []string{fmt.Sprintf("  %s %s %s", indicator, debugStyle.Render(elapsed.String()), errorStyle.Render(fmt.Sprintf("Failed %s", name)))}
	case "pending":
		return []string{fmt.Sprintf("  %s %s", indicator, pendingStyle.Render("Probing "+name))}
	}
	chunks := fmt.Sprintf("%d/%d chunks", job.ChunksDone, job.Workers)
	return []string{
		fmt.Sprintf("  %s %s %s", indicator, debugStyle.Render(elapsed.String()), pendingStyle.Render(fmt.Sprintf("Downloading %s", name))),
		"      " + ProgressBar(job.Downloaded, job.Total, 30) + debugStyle.Render(chunks) + " " + StyleSymbols["bullet"] + " " +
			debugStyle.Render(FormatSpeed(job.Downloaded, now.Sub(job.StartTime).Seconds())),
	}
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	availableLines := getTerminalHeight() - 3
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	var lines []string
	now := time.Now()
	for _, job := range m.sortedJobs() {
		lines = append(lines, m.renderJob(job, now)...)
	}
	if len(lines) > availableLines && availableLines > 0 {
		lines = lines[len(lines)-availableLines:]
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	if !m.interactive {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and the summary.
func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
	m.ShowSummary()
}

func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	jobs := m.sortedJobs()
	if !m.interactive {
		now := time.Now()
		for _, job := range jobs {
			for _, line := range m.renderJob(job, now) {
				fmt.Fprintln(m.out, line)
			}
		}
	}
	var success, failures int
	for _, job := range jobs {
		switch job.Status {
		case "success":
			success++
		case "error":
			failures++
		}
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(jobs))))
	if failures == 0 {
		fmt.Fprintln(m.out)
		return
	}
	fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(jobs))))
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
	i := 0
	for _, job := range jobs {
		if job.Status != "error" {
			continue
		}
		i++
		fmt.Fprintf(m.out, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i)),
			debugStyle.Render(fmt.Sprintf("[%s]", job.LastUpdated.Format("15:04:05"))),
			errorStyle.Render(job.FileName))
		fmt.Fprintf(m.out, "      %s\n", errorStyle.Render(strings.TrimSpace(fmt.Sprintf("Error: %v", job.Error))))
	}
	fmt.Fprintln(m.out)
}
