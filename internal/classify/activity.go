package classify

import (
	"math"

	"sentio/internal/landmark"
)

// ActivityClassifier maps body pose landmarks to an activity label.
// Like EmotionClassifier it is pure and never errors; missing joints
// yield nil. Y coordinates grow downward, so smaller values are higher
// in the frame.
type ActivityClassifier struct {
	thresholds ActivityThresholds
}

// NewActivityClassifier creates a classifier with the given thresholds.
func NewActivityClassifier(thresholds ActivityThresholds) *ActivityClassifier {
	return &ActivityClassifier{thresholds: thresholds}
}

// Classify returns the activity for a pose, or nil if the pose is absent
// or missing any of the seven required joints.
func (c *ActivityClassifier) Classify(pose landmark.Pose) *Activity {
	if pose == nil {
		return nil
	}

	pts, ok := pose.Joints(
		landmark.JointNose,
		landmark.JointLeftShoulder,
		landmark.JointRightShoulder,
		landmark.JointLeftHip,
		landmark.JointRightHip,
		landmark.JointLeftWrist,
		landmark.JointRightWrist,
	)
	if !ok {
		return nil
	}
	nose, leftShoulder, rightShoulder := pts[0], pts[1], pts[2]
	leftHip, rightHip := pts[3], pts[4]
	leftWrist, rightWrist := pts[5], pts[6]

	shoulderY := (leftShoulder.Y + rightShoulder.Y) / 2
	hipY := (leftHip.Y + rightHip.Y) / 2

	// A wrist raised above the shoulder line means a gesture, not a
	// posture. Above the nose it counts as waving.
	raiseLine := shoulderY - c.thresholds.WristRaiseMargin
	if leftWrist.Y < raiseLine || rightWrist.Y < raiseLine {
		var label Activity
		if leftWrist.Y < nose.Y || rightWrist.Y < nose.Y {
			label = ActivityWaving
		} else {
			label = ActivityRaisingHand
		}
		return &label
	}

	torsoLength := math.Abs(shoulderY - hipY)

	var label Activity
	switch {
	case torsoLength < c.thresholds.SitMax:
		label = ActivitySitting
	case torsoLength > c.thresholds.StandMin:
		label = ActivityStanding
	default:
		// Dead zone between the sitting and standing bands.
		label = ActivityUnknown
	}
	return &label
}
