package preset

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type document struct {
	Presets        map[string]Preset `json:"presets"`
	ActivePresetID *string           `json:"active_preset_id"`
}

// MarshalJSON encodes the collection as an indented document.
func (c Collection) MarshalJSON() ([]byte, error) {
	doc := document{
		Presets: c.Presets,
	}
	if doc.Presets == nil {
		doc.Presets = map[string]Preset{}
	}
	if c.Active != "" {
		doc.ActivePresetID = &c.Active
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalJSON decodes and checks a document. On error, c is not modified.
func (c *Collection) UnmarshalJSON(b []byte) error {
	x, err := ParseCollection(b)
	if err != nil {
		return err
	}
	*c = x
	return nil
}

// ParseCollection parses a document strictly, then checks it with
// [Collection.Check]. Errors wrap [ErrInvalidDocument].
func ParseCollection(b []byte) (Collection, error) {
	c, err := parseCollection(b)
	if err == nil {
		err = c.Check()
	}
	if err != nil {
		return Collection{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return c, nil
}

func parseCollection(b []byte) (Collection, error) {
	if !gjson.ValidBytes(b) {
		return Collection{}, fmt.Errorf("malformed json")
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return Collection{}, fmt.Errorf("document is not an object")
	}

	c := Collection{
		Presets: map[string]Preset{},
	}

	presets := root.Get("presets")
	if !presets.IsObject() {
		return Collection{}, fmt.Errorf("presets: expected object")
	}
	var err error
	presets.ForEach(func(key, value gjson.Result) bool {
		var p Preset
		if p, err = parsePreset(value); err != nil {
			err = fmt.Errorf("presets[%q]: %w", key.Str, err)
			return false
		}
		if _, ok := c.Presets[key.Str]; ok {
			err = fmt.Errorf("presets[%q]: duplicate key", key.Str)
			return false
		}
		c.Presets[key.Str] = p
		return true
	})
	if err != nil {
		return Collection{}, err
	}

	switch active := root.Get("active_preset_id"); active.Type {
	case gjson.Null:
	case gjson.String:
		c.Active = active.Str
	default:
		return Collection{}, fmt.Errorf("active_preset_id: expected string or null")
	}
	return c, nil
}

func parsePreset(v gjson.Result) (Preset, error) {
	var p Preset
	if !v.IsObject() {
		return p, fmt.Errorf("expected object")
	}
	var err error
	if p.ID, err = str(v, "id", false); err != nil {
		return p, err
	}
	if p.Name, err = str(v, "name", false); err != nil {
		return p, err
	}
	if p.Hotkey, err = str(v, "hotkey", true); err != nil {
		return p, err
	}
	switch x := v.Get("is_default"); x.Type {
	case gjson.Null:
	case gjson.True, gjson.False:
		p.IsDefault = x.Bool()
	default:
		return p, fmt.Errorf("is_default: expected bool")
	}
	cfg := v.Get("config")
	if !cfg.IsObject() {
		return p, fmt.Errorf("config: expected object")
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"brightness", &p.Config.Brightness},
		{"gamma", &p.Config.Gamma},
		{"contrast", &p.Config.Contrast},
		{"red_scale", &p.Config.RedScale},
		{"green_scale", &p.Config.GreenScale},
		{"blue_scale", &p.Config.BlueScale},
	} {
		x := cfg.Get(f.name)
		if x.Type != gjson.Number {
			return p, fmt.Errorf("config.%s: expected number", f.name)
		}
		*f.dst = x.Num
	}
	return p, nil
}

// str gets a string field. If optional, null or missing is treated as empty.
func str(v gjson.Result, key string, optional bool) (string, error) {
	switch x := v.Get(key); x.Type {
	case gjson.String:
		return x.Str, nil
	case gjson.Null:
		if optional {
			return "", nil
		}
		return "", fmt.Errorf("%s: missing", key)
	default:
		return "", fmt.Errorf("%s: expected string", key)
	}
}

var _ interface {
	json.Marshaler
	json.Unmarshaler
} = (*Collection)(nil)
