package calibration

import "fmt"

// Class is an archetype's balance state in one iteration, relative to the
// uniform target share.
type Class int

const (
	ClassDead Class = iota
	ClassUnder
	ClassInBand
	ClassOver
)

const (
	bandLow  = 0.8
	bandHigh = 1.2
)

// Classify buckets an assignment count against target = samples / archetypes.
func Classify(count int, target float64) Class {
	c := float64(count)
	switch {
	case count == 0:
		return ClassDead
	case c < bandLow*target:
		return ClassUnder
	case c > bandHigh*target:
		return ClassOver
	default:
		return ClassInBand
	}
}

func (c Class) String() string {
	switch c {
	case ClassDead:
		return "dead"
	case ClassUnder:
		return "under"
	case ClassInBand:
		return "in_band"
	case ClassOver:
		return "over"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(b []byte) error {
	for _, k := range []Class{ClassDead, ClassUnder, ClassInBand, ClassOver} {
		if k.String() == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown balance class %q", b)
}
