// Package curve turns color-correction parameters into per-channel gamma
// ramps.
package curve

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned (wrapped) when a [Config] has a parameter
// outside its domain.
var ErrInvalidConfig = errors.New("invalid filter config")

// Size is the number of input levels in a [Table].
const Size = 256

// Config contains the filter parameters. A config is either valid as a whole
// or rejected.
type Config struct {
	Brightness float64 `json:"brightness" validate:"gte=-1,lte=1"`   // additive offset applied after gamma
	Gamma      float64 `json:"gamma" validate:"gte=0.5,lte=3.5"`     // exponent (output = input^(1/gamma))
	Contrast   float64 `json:"contrast" validate:"gte=-0.5,lte=0.5"` // slope offset around the midpoint
	RedScale   float64 `json:"red_scale" validate:"gte=0.5,lte=2"`   // red gain
	GreenScale float64 `json:"green_scale" validate:"gte=0.5,lte=2"` // green gain
	BlueScale  float64 `json:"blue_scale" validate:"gte=0.5,lte=2"`  // blue gain
}

// Identity returns a config which does not modify colors.
func Identity() Config {
	return Config{
		Brightness: 0,
		Gamma:      1,
		Contrast:   0,
		RedScale:   1,
		GreenScale: 1,
		BlueScale:  1,
	}
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validate checks that every parameter is within its domain. NaN is never
// valid.
func (c Config) Validate() error {
	err := validate().Struct(c) // gte/lte comparisons are false for NaN
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s=%v (%s %s)", fieldName(fe.StructField()), fe.Value(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, ", "))
}

func fieldName(s string) string {
	switch s {
	case "Brightness":
		return "brightness"
	case "Gamma":
		return "gamma"
	case "Contrast":
		return "contrast"
	case "RedScale":
		return "red_scale"
	case "GreenScale":
		return "green_scale"
	case "BlueScale":
		return "blue_scale"
	}
	return s
}

// Compute computes the output level for an input level (0-255) on a channel
// with the specified gain. The config must be valid.
//
// The stages are applied in order (contrast, gamma, brightness, gain), each
// clamped to [0, 1].
func Compute(c Config, gain float64, level uint8) uint16 {
	x := float64(level) / 255
	x = clamp01((x-0.5)*(1+c.Contrast) + 0.5)
	x = math.Pow(x, 1/c.Gamma)
	x = clamp01(x + c.Brightness)
	x = clamp01(x * gain)
	return uint16(math.Round(x * 65535))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

// Table is a 256-level gamma ramp.
type Table struct {
	Red   [Size]uint16
	Green [Size]uint16
	Blue  [Size]uint16
}

// NewTable computes the table for a config, which must be valid.
func NewTable(c Config) Table {
	var t Table
	for i := range Size {
		t.Red[i] = Compute(c, c.RedScale, uint8(i))
		t.Green[i] = Compute(c, c.GreenScale, uint8(i))
		t.Blue[i] = Compute(c, c.BlueScale, uint8(i))
	}
	return t
}

// Linear returns the identity table.
func Linear() Table {
	var t Table
	for i := range Size {
		v := uint16(i) * 257 // round(i/255*65535)
		t.Red[i], t.Green[i], t.Blue[i] = v, v, v
	}
	return t
}

// Expand resamples the table into the provided ramps, which may be of any
// (equal or differing) non-zero length. This is needed since devices often
// have larger ramps (e.g., X11 CRTCs usually have 1024 entries).
func (t *Table) Expand(r, g, b []uint16) {
	resample(r, t.Red[:])
	resample(g, t.Green[:])
	resample(b, t.Blue[:])
}

// FromRamp resamples device ramps into a table. It returns false if any ramp
// is empty.
func FromRamp(r, g, b []uint16) (Table, bool) {
	var t Table
	if len(r) == 0 || len(g) == 0 || len(b) == 0 {
		return t, false
	}
	resample(t.Red[:], r)
	resample(t.Green[:], g)
	resample(t.Blue[:], b)
	return t, true
}

// resample linearly interpolates src onto dst, mapping the first and last
// entries onto each other.
func resample[C ~uint16](dst, src []C) {
	switch {
	case len(dst) == 0:
		return
	case len(src) == 1 || len(dst) == 1:
		for i := range dst {
			dst[i] = src[0]
		}
		return
	case len(src) == len(dst):
		copy(dst, src)
		return
	}
	scale := float64(len(src)-1) / float64(len(dst)-1)
	for i := range dst {
		pos := float64(i) * scale
		lo := int(pos)
		if lo >= len(src)-1 {
			dst[i] = src[len(src)-1]
			continue
		}
		frac := pos - float64(lo)
		dst[i] = C(math.Round(float64(src[lo])*(1-frac) + float64(src[lo+1])*frac))
	}
}
