package landmark

// Point is a single tracked landmark, normalized to frame dimensions.
// X and Y are in [0,1] with Y growing downward; Z and Visibility are
// optional extras reported by some engines and default to zero.
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// FaceBox is a face detection bounding box in normalized coordinates.
type FaceBox struct {
	XMin       float64 `json:"xmin"`
	YMin       float64 `json:"ymin"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Face mesh point indices used by the emotion heuristic. The engine uses
// the standard 468-point mesh indexing scheme.
const (
	MeshMouthLeft  = 61
	MeshMouthRight = 291
	MeshNoseTip    = 13
)

// Mesh is a face mesh landmark set keyed by mesh point index.
// A nil Mesh means no face was found in the frame.
type Mesh map[int]Point

// Point returns the mesh point at the given index.
func (m Mesh) Point(index int) (Point, bool) {
	p, ok := m[index]
	return p, ok
}

// Joint names a body pose landmark.
type Joint string

// Pose joints consumed by the activity heuristic.
const (
	JointNose          Joint = "nose"
	JointLeftShoulder  Joint = "left_shoulder"
	JointRightShoulder Joint = "right_shoulder"
	JointLeftHip       Joint = "left_hip"
	JointRightHip      Joint = "right_hip"
	JointLeftWrist     Joint = "left_wrist"
	JointRightWrist    Joint = "right_wrist"
)

// Pose is a body pose landmark set keyed by joint name.
// A nil Pose means no body was found in the frame.
type Pose map[Joint]Point

// Joint returns the named joint.
func (p Pose) Joint(name Joint) (Point, bool) {
	pt, ok := p[name]
	return pt, ok
}

// Joints returns the named joints and reports whether all were present.
func (p Pose) Joints(names ...Joint) ([]Point, bool) {
	pts := make([]Point, 0, len(names))
	for _, name := range names {
		pt, ok := p[name]
		if !ok {
			return nil, false
		}
		pts = append(pts, pt)
	}
	return pts, true
}
