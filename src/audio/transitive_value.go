package audio

import "math"

// ----- Transition Kind ----- //

const (
	transitionNone = iota
	transitionLinear
	transitionExponential
)

// ----- Transitive Value ----- //

// transitiveValue moves towards a target one sample at a time so parameter
// changes do not click.
type transitiveValue struct {
	kind         int
	duration     int // samples
	endThreshold float64
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
}

func newTransitiveValue() *transitiveValue {
	return &transitiveValue{}
}

func (tv *transitiveValue) init(value float64) {
	tv.kind = transitionNone
	tv.duration = 0
	tv.endThreshold = 0
	tv.initialValue = 0
	tv.targetValue = value
	tv.value = value
	tv.pos = 0
}

func (tv *transitiveValue) linear(duration int, targetValue float64) {
	if duration <= 0 {
		tv.init(targetValue)
		return
	}
	tv.kind = transitionLinear
	tv.duration = duration
	tv.endThreshold = 0
	tv.pos = 0
	tv.initialValue = tv.value
	tv.targetValue = targetValue
}

// exponential gets 63% closer to the target every duration samples.
func (tv *transitiveValue) exponential(duration int, targetValue float64, endThreshold float64) {
	if duration <= 0 {
		tv.init(targetValue)
		return
	}
	tv.kind = transitionExponential
	tv.duration = duration
	tv.endThreshold = endThreshold
	tv.pos = 0
	tv.initialValue = tv.value
	tv.targetValue = targetValue
}

func (tv *transitiveValue) moving() bool {
	return tv.kind != transitionNone
}

func (tv *transitiveValue) step() bool {
	ended := false
	switch tv.kind {
	case transitionLinear:
		tv.pos++
		if tv.pos >= tv.duration {
			tv.end()
			ended = true
		} else {
			t := float64(tv.pos) / float64(tv.duration)
			tv.value = t*tv.targetValue + (1-t)*tv.initialValue
		}
	case transitionExponential:
		tv.pos++
		t := float64(tv.pos) / float64(tv.duration)
		tv.value = setTargetAtTime(tv.initialValue, tv.targetValue, t)
		if math.Abs(tv.value-tv.targetValue) < tv.endThreshold {
			tv.end()
			ended = true
		}
	case transitionNone:
	}
	return ended
}

func (tv *transitiveValue) end() {
	tv.kind = transitionNone
	tv.value = tv.targetValue
	tv.pos = 0
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}
