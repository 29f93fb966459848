package resizer

import (
	"github.com/abk-openroad/Resizer/internal/liberty"
	"github.com/abk-openroad/Resizer/internal/network"
)

// hasMaxCapViolation reports whether the driver's observed load exceeds the
// library port's max-capacitance limit.
func (r *Resizer) hasMaxCapViolation(drvr *network.Pin) bool {
	if drvr.IsTopLevel() || drvr.Port == nil {
		return false
	}
	limit, exists := drvr.Port.CapacitanceLimit()
	if !exists {
		return false
	}
	return r.graph.LoadCap(drvr) > limit
}

// hasMaxSlewViolation reports whether either transition's slew at the
// driver exceeds the tightest applicable limit.
func (r *Resizer) hasMaxSlewViolation(drvr *network.Pin) bool {
	for tr := liberty.Rise; tr <= liberty.Fall; tr++ {
		limit, exists := r.slewLimit(drvr, tr)
		if exists && r.graph.Slew(drvr, tr) > limit {
			return true
		}
	}
	return false
}

// slewLimit resolves the tightest slew limit applying to a pin: the design
// limit, the top-level port limit when the pin is a top port, the per-pin
// limit, and the library port's own limit. For max limits tighter means
// smaller.
func (r *Resizer) slewLimit(pin *network.Pin, tr liberty.Transition) (limit float64, exists bool) {
	limit, exists = r.graph.Constraints().DesignMaxSlew()

	tighten := func(l float64, ok bool) {
		if ok && (!exists || l < limit) {
			limit = l
			exists = true
		}
	}

	if pin.IsTopLevel() {
		tighten(pin.MaxSlew, pin.MaxSlewExists)
		return limit, exists
	}
	tighten(pin.MaxSlew, pin.MaxSlewExists)
	if pin.Port != nil {
		tighten(pin.Port.SlewLimit())
	}
	return limit, exists
}
