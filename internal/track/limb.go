package track

import "armsight/internal/pose"

// SelectActiveArm decides which arm is driving the match, once for the
// whole clip: the wrist that sits higher on screen (smaller y) on average
// is the engaged one, the idle arm hangs or rests on the table. When only
// one wrist is reliably detected, that side wins by default.
func SelectActiveArm(p Participant) Arm {
	var leftSum, rightSum float64
	var both, leftOnly, rightOnly int
	for _, s := range p.Samples {
		lw, lok := s.Landmarks.Get(pose.LeftWrist)
		rw, rok := s.Landmarks.Get(pose.RightWrist)
		switch {
		case lok && rok:
			leftSum += lw.Y
			rightSum += rw.Y
			both++
		case lok:
			leftOnly++
		case rok:
			rightOnly++
		}
	}
	if both > 0 {
		if rightSum/float64(both) <= leftSum/float64(both) {
			return RightArm
		}
		return LeftArm
	}
	if leftOnly > rightOnly {
		return LeftArm
	}
	return RightArm
}
