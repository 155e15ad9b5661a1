// Package debug provides a text overlay that shows frame timing, per-frame
// status values and the diagnostic log lines emitted during the frame.
package debug

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// DefaultMaxLines bounds the log lines kept for one frame.
const DefaultMaxLines = 32

// Overlay collects debug information for the current frame.
type Overlay struct {
	mu sync.Mutex

	// Frame timing
	frameCount    int
	fps           float64
	frameTime     float64 // ms
	fpsUpdateTime float64 // seconds since last FPS update
	frameAccum    int

	// Memory stats
	memStats      runtime.MemStats
	memUpdateTime float64

	status   []statusLine
	lines    []string
	maxLines int

	// Display toggles
	ShowFPS    bool
	ShowStatus bool
	ShowLog    bool
	ShowMemory bool
	Enabled    bool
}

type statusLine struct {
	name  string
	value string
}

// NewOverlay creates an overlay keeping at most maxLines log lines per
// frame. A non-positive maxLines uses DefaultMaxLines.
func NewOverlay(maxLines int) *Overlay {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Overlay{
		maxLines:   maxLines,
		ShowFPS:    true,
		ShowStatus: true,
		ShowLog:    true,
		ShowMemory: false,
		Enabled:    true,
	}
}

// BeginFrame starts a new frame and drops the previous frame's log lines.
// deltaMs is the frame time in milliseconds.
func (o *Overlay) BeginFrame(deltaMs float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.frameCount++
	o.frameTime = deltaMs
	o.frameAccum++
	o.fpsUpdateTime += deltaMs / 1000.0

	// Update FPS every 0.5 seconds
	if o.fpsUpdateTime >= 0.5 {
		o.fps = float64(o.frameAccum) / o.fpsUpdateTime
		o.frameAccum = 0
		o.fpsUpdateTime = 0
	}

	if o.ShowMemory {
		o.memUpdateTime += deltaMs / 1000.0
		if o.memUpdateTime >= 2.0 {
			runtime.ReadMemStats(&o.memStats)
			o.memUpdateTime = 0
		}
	}

	o.lines = o.lines[:0]
}

// SetStatus sets a named value shown above the log lines. Names keep the
// order in which they were first set.
func (o *Overlay) SetStatus(name, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.status {
		if o.status[i].name == name {
			o.status[i].value = value
			return
		}
	}
	o.status = append(o.status, statusLine{name: name, value: value})
}

// FrameCount returns the number of frames begun.
func (o *Overlay) FrameCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frameCount
}

// FPS returns the latest frames-per-second estimate.
func (o *Overlay) FPS() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fps
}

// Lines returns a copy of the log lines collected this frame.
func (o *Overlay) Lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lines...)
}

// Render writes the overlay as text.
func (o *Overlay) Render(w io.Writer) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Enabled {
		return nil
	}

	var b strings.Builder
	if o.ShowFPS {
		fmt.Fprintf(&b, "frame %d  FPS: %.1f (%.2f ms)\n", o.frameCount, o.fps, o.frameTime)
	}
	if o.ShowStatus {
		for _, s := range o.status {
			fmt.Fprintf(&b, "%s: %s\n", s.name, s.value)
		}
	}
	if o.ShowMemory {
		fmt.Fprintf(&b, "mem: alloc %s, sys %s, gc %d\n",
			formatBytes(int64(o.memStats.Alloc)), formatBytes(int64(o.memStats.Sys)), o.memStats.NumGC)
	}
	if o.ShowLog {
		for _, l := range o.lines {
			b.WriteString("  ")
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (o *Overlay) addLine(line string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.lines) >= o.maxLines {
		o.lines = append(o.lines[:0], o.lines[1:]...)
	}
	o.lines = append(o.lines, line)
}

// Core returns a zap core that appends entries at or above level to the
// current frame.
func (o *Overlay) Core(level zapcore.LevelEnabler) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})
	return &overlayCore{LevelEnabler: level, enc: enc, overlay: o}
}

type overlayCore struct {
	zapcore.LevelEnabler
	enc     zapcore.Encoder
	overlay *Overlay
}

func (c *overlayCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &overlayCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone(), overlay: c.overlay}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *overlayCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *overlayCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	c.overlay.addLine(strings.TrimRight(buf.String(), "\n"))
	buf.Free()
	return nil
}

func (c *overlayCore) Sync() error {
	return nil
}

// formatBytes formats byte count to human readable string.
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
