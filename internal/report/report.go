package report

// Report is the structured form of a finished session. Field groupings
// are stable: consumers rely on the general / frame_stats / emotion_stats /
// activity_stats / anomalies top-level keys.
type Report struct {
	General       General      `json:"general"`
	FrameStats    FrameStats   `json:"frame_stats"`
	EmotionStats  LabelStats   `json:"emotion_stats"`
	ActivityStats LabelStats   `json:"activity_stats"`
	Anomalies     AnomalyStats `json:"anomalies"`
}

// General identifies the analyzed source and when the analysis ran.
type General struct {
	Source          string  `json:"source"`
	AnalyzedAt      string  `json:"analyzed_at"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// FrameStats summarizes frame-level counters.
type FrameStats struct {
	TotalFrames    int     `json:"total_frames"`
	FramesWithFace int     `json:"frames_with_face"`
	DetectionPct   float64 `json:"detection_pct"`
}

// LabelStats is a label distribution. Total counts only frames where the
// label was present, so distribution counts always sum to Total.
// Distribution is ranked by count descending, ties broken by first-seen
// order. Predominant is nil when nothing was recorded.
type LabelStats struct {
	Total        int          `json:"total"`
	Distribution []LabelCount `json:"distribution"`
	Predominant  *string      `json:"predominant"`
}

// LabelCount is one distribution bucket. Pct is rounded to 2 decimals
// and matches the text rendering exactly.
type LabelCount struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// AnomalyStats is the ordered anomaly log.
type AnomalyStats struct {
	Count   int            `json:"count"`
	Records []AnomalyEntry `json:"records"`
}

// AnomalyEntry is one logged anomaly.
type AnomalyEntry struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Frame       int    `json:"frame"`
	Timestamp   string `json:"timestamp"`
}
