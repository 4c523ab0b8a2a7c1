package synth

import "fmt"

// Controllers assigns controller numbers to the broadcast parameters.
type Controllers struct {
	Gain      int
	Frequency int
	Waveform  int
}

// DefaultControllers are the first three knobs of the controller.
var DefaultControllers = Controllers{Gain: 21, Frequency: 22, Waveform: 23}

// Validate ...
func (c Controllers) Validate() error {
	for _, n := range []int{c.Gain, c.Frequency, c.Waveform} {
		if n < 0 || n > maxData {
			return fmt.Errorf("controller number %d out of range", n)
		}
	}
	if c.Gain == c.Frequency || c.Gain == c.Waveform || c.Frequency == c.Waveform {
		return fmt.Errorf("controller numbers must be distinct: %+v", c)
	}
	return nil
}

// Router applies control-change messages to every active voice. Each message
// sets an absolute value; nothing is remembered between messages.
type Router struct {
	controllers Controllers
}

// NewRouter ...
func NewRouter(controllers Controllers) *Router {
	return &Router{controllers: controllers}
}

// Route reports whether controller is assigned to a parameter.
func (r *Router) Route(controller int, value int, registry *Registry) bool {
	var apply func(v *Voice)
	switch clampData(controller) {
	case r.controllers.Gain:
		gain := ControllerToGain(value)
		apply = func(v *Voice) { v.SetGain(gain) }
	case r.controllers.Frequency:
		freq := ControllerToFrequency(value)
		apply = func(v *Voice) { v.SetFrequency(freq) }
	case r.controllers.Waveform:
		w := ControllerToWaveform(value)
		apply = func(v *Voice) { v.SetWaveform(w) }
	default:
		return false
	}
	for _, v := range registry.AllActive() {
		apply(v)
	}
	return true
}
