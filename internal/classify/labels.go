package classify

// Emotion is a facial expression label.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSurprised Emotion = "surprised"
	EmotionSad       Emotion = "sad"
)

// Activity is a body posture/gesture label.
type Activity string

const (
	ActivityStanding    Activity = "standing"
	ActivitySitting     Activity = "sitting"
	ActivityWaving      Activity = "waving"
	ActivityRaisingHand Activity = "raising_hand"
	// ActivityUnknown marks an ambiguous posture. It is a valid
	// classification outcome, not a failure.
	ActivityUnknown Activity = "unknown"
)

// EmotionThresholds are the mouth-height band boundaries, ordered
// ascending. A mouth height below Neutral classifies as neutral, below
// Happy as happy, below Surprised as surprised, anything else as sad.
// Each boundary value itself falls into the next band up.
type EmotionThresholds struct {
	Neutral   float64
	Happy     float64
	Surprised float64
}

// DefaultEmotionThresholds returns the stock band boundaries.
func DefaultEmotionThresholds() EmotionThresholds {
	return EmotionThresholds{
		Neutral:   0.02,
		Happy:     0.04,
		Surprised: 0.06,
	}
}

// ActivityThresholds tune the posture heuristic.
type ActivityThresholds struct {
	// WristRaiseMargin is how far above the shoulder line (in normalized
	// units) a wrist must be to count as raised.
	WristRaiseMargin float64
	// SitMax and StandMin bound the torso-length bands. Torso lengths in
	// [SitMax, StandMin] are a deliberate dead zone classified as unknown.
	SitMax   float64
	StandMin float64
}

// DefaultActivityThresholds returns the stock posture thresholds.
func DefaultActivityThresholds() ActivityThresholds {
	return ActivityThresholds{
		WristRaiseMargin: 0.1,
		SitMax:           0.2,
		StandMin:         0.25,
	}
}
