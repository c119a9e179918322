package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"sentio/internal/anomaly"
	"sentio/internal/pipeline"
)

const lineWidth = 80

// Aggregator accumulates the statistics of one analysis session. It is
// the only stateful object in a session and is driven strictly
// sequentially: Record and RecordAnomaly calls arrive ordered by frame
// index. Finalize freezes the session and may be called at any point,
// including after zero frames or a cancelled run.
type Aggregator struct {
	source    string
	started   time.Time
	ended     time.Time
	finalized bool

	totalFrames    int
	framesWithFace int
	emotions       *distribution
	activities     *distribution
	anomalies      []anomaly.Record
}

// NewAggregator starts a session for the given source identifier.
func NewAggregator(source string) *Aggregator {
	return &Aggregator{
		source:     source,
		started:    time.Now(),
		emotions:   newDistribution(),
		activities: newDistribution(),
	}
}

// Record folds one frame result into the running counters. Labels that
// are nil are not counted anywhere, so each distribution sums to the
// number of frames where that label was present.
func (a *Aggregator) Record(result *pipeline.FrameResult) {
	a.totalFrames++
	if result.HasFace() {
		a.framesWithFace++
	}
	if result.Emotion != nil {
		a.emotions.add(string(*result.Emotion))
	}
	if result.Activity != nil {
		a.activities.add(string(*result.Activity))
	}
}

// RecordAnomaly appends to the ordered anomaly log.
func (a *Aggregator) RecordAnomaly(record anomaly.Record) {
	a.anomalies = append(a.anomalies, record)
}

// Finalize sets the session end time. Calling it again has no effect.
func (a *Aggregator) Finalize() {
	if a.finalized {
		return
	}
	a.ended = time.Now()
	a.finalized = true
}

// TotalFrames returns the number of recorded frames.
func (a *Aggregator) TotalFrames() int {
	return a.totalFrames
}

// StartedAt returns the session start time.
func (a *Aggregator) StartedAt() time.Time {
	return a.started
}

// EndedAt returns the session end time, zero until finalized.
func (a *Aggregator) EndedAt() time.Time {
	return a.ended
}

// Anomalies returns the ordered anomaly log.
func (a *Aggregator) Anomalies() []anomaly.Record {
	return a.anomalies
}

// Structured builds the structured report record.
func (a *Aggregator) Structured() *Report {
	duration := a.duration()

	rep := &Report{
		General: General{
			Source:          a.source,
			AnalyzedAt:      a.started.Format("02/01/2006 15:04:05"),
			DurationSeconds: round2(duration.Seconds()),
		},
		FrameStats: FrameStats{
			TotalFrames:    a.totalFrames,
			FramesWithFace: a.framesWithFace,
			DetectionPct:   percentage(a.framesWithFace, a.totalFrames),
		},
		EmotionStats:  a.emotions.stats(),
		ActivityStats: a.activities.stats(),
		Anomalies: AnomalyStats{
			Count:   len(a.anomalies),
			Records: make([]AnomalyEntry, 0, len(a.anomalies)),
		},
	}

	for _, rec := range a.anomalies {
		rep.Anomalies.Records = append(rep.Anomalies.Records, AnomalyEntry{
			Kind:        string(rec.Kind),
			Description: rec.Description,
			Frame:       rec.Frame,
			Timestamp:   rec.Timestamp.Format("15:04:05"),
		})
	}

	return rep
}

// RenderText builds the human-readable report. Rankings, tie-breaks and
// percentage rounding are identical to Structured.
func (a *Aggregator) RenderText() string {
	rep := a.Structured()

	var b strings.Builder
	rule := strings.Repeat("=", lineWidth)
	sep := strings.Repeat("-", lineWidth)

	fmt.Fprintf(&b, "%s\nVIDEO ANALYSIS REPORT\n%s\n\n", rule, rule)

	fmt.Fprintf(&b, "GENERAL INFORMATION\n%s\n", sep)
	fmt.Fprintf(&b, "Source:              %s\n", rep.General.Source)
	fmt.Fprintf(&b, "Analyzed At:         %s\n", rep.General.AnalyzedAt)
	fmt.Fprintf(&b, "Analysis Duration:   %.2f seconds\n\n", rep.General.DurationSeconds)

	fmt.Fprintf(&b, "FRAME STATISTICS\n%s\n", sep)
	fmt.Fprintf(&b, "Total Frames Analyzed:        %d\n", rep.FrameStats.TotalFrames)
	fmt.Fprintf(&b, "Frames With Faces Detected:   %d\n", rep.FrameStats.FramesWithFace)
	fmt.Fprintf(&b, "Detection Percentage:         %.2f%%\n\n", rep.FrameStats.DetectionPct)

	writeLabelSection(&b, "EMOTIONS DETECTED", "Emotion", "emotions", rep.EmotionStats, sep)
	writeLabelSection(&b, "ACTIVITIES DETECTED", "Activity", "activities", rep.ActivityStats, sep)

	fmt.Fprintf(&b, "ANOMALIES DETECTED\n%s\n", sep)
	fmt.Fprintf(&b, "Anomaly Count:  %d\n", rep.Anomalies.Count)
	if rep.Anomalies.Count > 0 {
		b.WriteString("\nAnomaly Details:\n")
		for i, rec := range rep.Anomalies.Records {
			fmt.Fprintf(&b, "  %d. [%s] Frame %d\n", i+1, rec.Timestamp, rec.Frame)
			fmt.Fprintf(&b, "     Kind: %s\n", rec.Kind)
			fmt.Fprintf(&b, "     Description: %s\n\n", rec.Description)
		}
	} else {
		b.WriteString("No anomalies detected in the video\n")
	}

	fmt.Fprintf(&b, "\n%s\nEND OF REPORT\n%s\n", rule, rule)
	return b.String()
}

func writeLabelSection(b *strings.Builder, title, noun, plural string, stats LabelStats, sep string) {
	fmt.Fprintf(b, "%s\n%s\n", title, sep)
	if stats.Total == 0 {
		fmt.Fprintf(b, "No %s detected\n\n", plural)
		return
	}

	fmt.Fprintf(b, "Total Records:   %d\n\n", stats.Total)
	fmt.Fprintf(b, "%s Distribution:\n", noun)
	for _, lc := range stats.Distribution {
		bar := strings.Repeat("#", int(lc.Pct/2))
		fmt.Fprintf(b, "  %-15s: %5d (%.2f%%) %s\n", lc.Label, lc.Count, lc.Pct, bar)
	}
	fmt.Fprintf(b, "\nPredominant %s:  %s\n\n", noun, *stats.Predominant)
}

func (a *Aggregator) duration() time.Duration {
	if a.finalized {
		return a.ended.Sub(a.started)
	}
	return time.Since(a.started)
}

// distribution counts labels while remembering first-seen order for
// deterministic tie-breaking.
type distribution struct {
	counts map[string]int
	order  []string
}

func newDistribution() *distribution {
	return &distribution{counts: make(map[string]int)}
}

func (d *distribution) add(label string) {
	if _, seen := d.counts[label]; !seen {
		d.order = append(d.order, label)
	}
	d.counts[label]++
}

func (d *distribution) total() int {
	total := 0
	for _, c := range d.counts {
		total += c
	}
	return total
}

func (d *distribution) stats() LabelStats {
	total := d.total()
	stats := LabelStats{
		Total:        total,
		Distribution: make([]LabelCount, 0, len(d.order)),
	}
	if total == 0 {
		return stats
	}

	// Selection by descending count over first-seen order keeps ties in
	// insertion order without a comparison sort.
	remaining := append([]string(nil), d.order...)
	for len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if d.counts[remaining[i]] > d.counts[remaining[best]] {
				best = i
			}
		}
		label := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		stats.Distribution = append(stats.Distribution, LabelCount{
			Label: label,
			Count: d.counts[label],
			Pct:   percentage(d.counts[label], total),
		})
	}

	predominant := stats.Distribution[0].Label
	stats.Predominant = &predominant
	return stats
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
