package ui

import (
	"sync"
	"time"

	"github.com/Aman-CERP/mdsearch/internal/index"
)

const (
	// speedInterval is the minimum gap between speed samples.
	speedInterval = 500 * time.Millisecond
	// speedSmoothing weights a new sample in the rolling average.
	speedSmoothing = 0.2
	// etaSmoothing weights a new estimate against the previous ETA.
	etaSmoothing = 0.3
)

// SpeedStats contains documents-per-second metrics.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats is a snapshot of the tracked stage.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Speed       SpeedStats
}

// ProgressTracker follows one rebuild across its stages. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu  sync.Mutex
	now func() time.Time

	stage       Stage
	current     int
	total       int
	currentFile string
	started     time.Time
	stageStart  time.Time
	timings     StageTimings
	errors      int
	warnings    int

	lastETA    time.Duration
	lastCount  int
	lastSample time.Time
	speed      SpeedStats
	samples    int
}

// NewProgressTracker creates a tracker positioned at the scan stage.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	t := now()
	return &ProgressTracker{
		now:        now,
		stage:      StageScanning,
		started:    t,
		stageStart: t,
		lastSample: t,
	}
}

// SetStage closes the timing of the current stage and starts the next.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setStage(stage, total)
}

func (p *ProgressTracker) setStage(stage Stage, total int) {
	now := p.now()
	p.addTiming(p.stage, now.Sub(p.stageStart))

	p.stage = stage
	p.total = total
	p.current = 0
	p.currentFile = ""
	p.stageStart = now
	p.lastETA = 0
	p.lastCount = 0
	p.lastSample = now
	p.speed = SpeedStats{}
	p.samples = 0
}

func (p *ProgressTracker) addTiming(stage Stage, d time.Duration) {
	switch stage {
	case StageScanning:
		p.timings.Scan += d
	case StageExtracting:
		p.timings.Extract += d
	case StageIndexing:
		p.timings.Index += d
	}
}

// Observe applies one progress event, switching stage when it differs.
func (p *ProgressTracker) Observe(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage != p.stage {
		p.setStage(event.Stage, event.Total)
	}
	if event.Total > 0 {
		p.total = event.Total
	}
	p.update(event.Current, event.CurrentFile)
}

// Update records progress within the current stage.
func (p *ProgressTracker) Update(current int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.update(current, file)
}

func (p *ProgressTracker) update(current int, file string) {
	p.current = current
	if file != "" {
		p.currentFile = file
	}

	now := p.now()
	elapsed := now.Sub(p.lastSample)
	if elapsed < speedInterval {
		return
	}
	if delta := current - p.lastCount; delta > 0 {
		rate := float64(delta) / elapsed.Seconds()
		p.speed.Current = rate
		p.samples++
		if p.samples == 1 {
			p.speed.Avg = rate
		} else {
			p.speed.Avg = speedSmoothing*rate + (1-speedSmoothing)*p.speed.Avg
		}
		p.speed.Peak = max(p.speed.Peak, rate)
	}
	p.lastCount = current
	p.lastSample = now
}

// AddError counts an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.IsWarn {
		p.warnings++
	} else {
		p.errors++
	}
}

// Finish closes the running stage and returns all stage timings.
func (p *ProgressTracker) Finish() StageTimings {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stage != StageComplete {
		p.setStage(StageComplete, 0)
	}
	return p.timings
}

// Elapsed returns time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Sub(p.started)
}

// Stats returns a snapshot. It advances ETA smoothing, so consecutive calls
// converge rather than jump.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:       p.stage,
		Current:     p.current,
		Total:       p.total,
		Progress:    p.fraction(),
		ETA:         p.eta(),
		CurrentFile: p.currentFile,
		ErrorCount:  p.errors,
		WarnCount:   p.warnings,
		Speed:       p.speed,
	}
}

func (p *ProgressTracker) fraction() float64 {
	if p.total <= 0 {
		return 0
	}
	return min(float64(p.current)/float64(p.total), 1.0)
}

func (p *ProgressTracker) eta() time.Duration {
	f := p.fraction()
	if f <= 0 || f >= 1 {
		return 0
	}
	elapsed := p.now().Sub(p.stageStart)
	remaining := time.Duration(float64(elapsed)/f) - elapsed
	if remaining < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = remaining
		return remaining
	}
	p.lastETA = time.Duration(etaSmoothing*float64(remaining) + (1-etaSmoothing)*float64(p.lastETA))
	return p.lastETA
}

// Recorder forwards synchronizer progress to a Renderer while tracking
// stage timings for the completion summary.
type Recorder struct {
	renderer Renderer
	tracker  *ProgressTracker
}

// NewRecorder creates a Recorder for r.
func NewRecorder(r Renderer) *Recorder {
	return &Recorder{renderer: r, tracker: NewProgressTracker()}
}

// Func returns the callback to hand to Rebuild or Reconcile.
func (rec *Recorder) Func() index.ProgressFunc {
	forward := ProgressFunc(rec.renderer)
	return func(p index.Progress) {
		rec.tracker.Observe(ProgressEvent{
			Stage:       StageOf(p.Stage),
			Current:     p.Current,
			Total:       p.Total,
			CurrentFile: p.Path,
		})
		forward(p)
	}
}

// Complete reports the finished rebuild to the renderer.
func (rec *Recorder) Complete(rs *index.RebuildStats) CompletionStats {
	stats := CompletionFromRebuild(rs, rec.tracker.Finish())
	rec.renderer.Complete(stats)
	return stats
}
