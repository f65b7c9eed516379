package curve

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		fn   func(*Config)
		ok   bool
	}{
		{"identity", func(c *Config) {}, true},
		{"min", func(c *Config) { *c = Config{-1, 0.5, -0.5, 0.5, 0.5, 0.5} }, true},
		{"max", func(c *Config) { *c = Config{1, 3.5, 0.5, 2, 2, 2} }, true},
		{"brightness low", func(c *Config) { c.Brightness = -1.01 }, false},
		{"brightness high", func(c *Config) { c.Brightness = 1.01 }, false},
		{"gamma low", func(c *Config) { c.Gamma = 0.49 }, false},
		{"gamma high", func(c *Config) { c.Gamma = 3.51 }, false},
		{"gamma zero", func(c *Config) { c.Gamma = 0 }, false},
		{"contrast low", func(c *Config) { c.Contrast = -0.51 }, false},
		{"contrast high", func(c *Config) { c.Contrast = 0.51 }, false},
		{"red low", func(c *Config) { c.RedScale = 0.4 }, false},
		{"green high", func(c *Config) { c.GreenScale = 2.1 }, false},
		{"blue zero", func(c *Config) { c.BlueScale = 0 }, false},
		{"nan", func(c *Config) { c.Brightness = math.NaN() }, false},
		{"inf", func(c *Config) { c.Gamma = math.Inf(1) }, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Identity()
			tc.fn(&c)
			err := c.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Errorf("expected invalid")
				} else if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestValidateNamesFields(t *testing.T) {
	c := Identity()
	c.Gamma = 5
	c.BlueScale = 0.1
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, f := range []string{"gamma", "blue_scale"} {
		if !strings.Contains(err.Error(), f+"=") {
			t.Errorf("error %q does not name %s", err, f)
		}
	}
}

func TestComputeIdentity(t *testing.T) {
	c := Identity()
	lin := Linear()
	for i := range Size {
		if v := Compute(c, 1, uint8(i)); v != lin.Red[i] {
			t.Errorf("level %d: got %d, expected %d", i, v, lin.Red[i])
		}
	}
}

func TestComputeStages(t *testing.T) {
	for _, tc := range []struct {
		c     Config
		gain  float64
		level uint8
		exp   uint16
	}{
		{Config{0, 1, 0, 1, 1, 1}, 1, 0, 0},
		{Config{0, 1, 0, 1, 1, 1}, 1, 255, 65535},
		{Config{-1, 1, 0, 1, 1, 1}, 1, 255, 0},      // full black
		{Config{1, 1, 0, 1, 1, 1}, 1, 0, 65535},     // full white
		{Config{0, 1, 0.5, 1, 1, 1}, 1, 0, 0},       // (0-0.5)*1.5+0.5 < 0
		{Config{0, 1, -0.5, 1, 1, 1}, 1, 0, 16384},  // (0-0.5)*0.5+0.5 = 0.25
		{Config{0, 2, 0, 1, 1, 1}, 1, 64, 32832},    // sqrt(64/255)
		{Config{0.1, 1, 0, 1, 1, 1}, 1, 255, 65535}, // clamped
		{Config{0, 1, 0, 1, 1, 1}, 0.5, 255, 32768}, // gain
		{Config{0, 1, 0, 1, 1, 1}, 2, 200, 65535},   // gain clamped
		{Config{0.5, 1, 0, 1, 1, 1}, 0.5, 0, 16384}, // brightness before gain
	} {
		if v := Compute(tc.c, tc.gain, tc.level); v != tc.exp {
			t.Errorf("%+v gain=%v level=%d: got %d, expected %d", tc.c, tc.gain, tc.level, v, tc.exp)
		}
	}
}

func TestComputeProperties(t *testing.T) {
	var (
		brightness = []float64{-1, -0.99, -0.5, 0, 0.3, 1}
		gamma      = []float64{0.5, 1, 2.2, 3.5}
		contrast   = []float64{-0.5, 0, 0.25, 0.5}
		gain       = []float64{0.5, 1, 2}
	)
	for _, b := range brightness {
		for _, g := range gamma {
			for _, c := range contrast {
				for _, s := range gain {
					cfg := Config{b, g, c, s, s, s}
					if err := cfg.Validate(); err != nil {
						t.Fatalf("%+v: %v", cfg, err)
					}
					prev := Compute(cfg, s, 0)
					for i := 1; i < Size; i++ {
						v := Compute(cfg, s, uint8(i))
						if v < prev {
							t.Errorf("%+v: not monotonic at %d (%d < %d)", cfg, i, v, prev)
							break
						}
						prev = v
					}
					if b > -1 && Compute(cfg, s, 0) > Compute(cfg, s, 255) {
						t.Errorf("%+v: level 0 brighter than level 255", cfg)
					}
				}
			}
		}
	}
}

func TestNewTable(t *testing.T) {
	c := Identity()
	c.RedScale = 0.5
	c.BlueScale = 2
	tbl := NewTable(c)
	if tbl.Red[255] != 32768 {
		t.Errorf("red: got %d", tbl.Red[255])
	}
	if tbl.Green[255] != 65535 || tbl.Green[128] != 128*257 {
		t.Errorf("green: got %d %d", tbl.Green[255], tbl.Green[128])
	}
	if tbl.Blue[128] != 65535 {
		t.Errorf("blue: got %d", tbl.Blue[128])
	}
	if NewTable(Identity()) != Linear() {
		t.Errorf("identity table is not linear")
	}
}

func TestResample(t *testing.T) {
	for _, n := range []int{1, 2, 255, 256, 257, 1024, 4096} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			lin := Linear()
			r, g, b := make([]uint16, n), make([]uint16, n), make([]uint16, n)
			lin.Expand(r, g, b)
			if n > 1 {
				if r[0] != 0 || r[n-1] != 65535 {
					t.Errorf("endpoints not preserved: %d %d", r[0], r[n-1])
				}
				for i := 1; i < n; i++ {
					if r[i] < r[i-1] {
						t.Fatalf("not monotonic at %d", i)
					}
				}
			}
			back, ok := FromRamp(r, g, b)
			if !ok {
				t.Fatalf("FromRamp failed")
			}
			if n < 256 {
				return // lossy
			}
			for i := range Size {
				if d := int(back.Red[i]) - int(lin.Red[i]); d < -1 || d > 1 {
					t.Errorf("level %d: got %d, expected ~%d", i, back.Red[i], lin.Red[i])
				}
			}
		})
	}
	if _, ok := FromRamp(nil, []uint16{1}, []uint16{1}); ok {
		t.Errorf("expected FromRamp to fail on empty ramp")
	}
}
