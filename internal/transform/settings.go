package transform

// Enhancements holds tone and color adjustments. Factors follow the
// convention that 1.0 leaves the image untouched.
type Enhancements struct {
	AutoContrast bool
	Sharpness    float64
	Contrast     float64
	Brightness   float64
	Color        float64
}

// UnsharpMask sharpens by blending the image against a blurred copy.
type UnsharpMask struct {
	Radius  float64
	Percent float64
}

// Settings is the fully resolved processing recipe for one image.
type Settings struct {
	CropBox                []int // left, top, right, bottom; nil when absent
	MaxProcessingDimension int
	ResizeTo               [2]int
	Quality                int
	Enhancements           Enhancements
	Unsharp                *UnsharpMask
}

// ParseSettings resolves a merged settings table into a Settings value,
// falling back to defaults for anything absent or malformed.
func ParseSettings(merged map[string]any) Settings {
	s := Settings{
		MaxProcessingDimension: 4000,
		ResizeTo:               [2]int{1920, 1920},
		Quality:                60,
		Enhancements: Enhancements{
			Sharpness:  1.0,
			Contrast:   1.0,
			Brightness: 1.0,
			Color:      1.0,
		},
	}
	if merged == nil {
		return s
	}

	if box, ok := toIntSlice(merged["crop_box"]); ok && len(box) == 4 {
		s.CropBox = box
	}
	if v, ok := toInt(merged["max_processing_dimension"]); ok && v > 0 {
		s.MaxProcessingDimension = v
	}
	if dims, ok := toIntSlice(merged["resize_to"]); ok && len(dims) == 2 {
		s.ResizeTo = [2]int{dims[0], dims[1]}
	}
	if v, ok := toInt(merged["quality"]); ok && v > 0 && v <= 100 {
		s.Quality = v
	}

	if enh, ok := merged["enhancements"].(map[string]any); ok {
		if v, ok := toBool(enh["apply_autocontrast"]); ok {
			s.Enhancements.AutoContrast = v
		}
		if v, ok := toFloat(enh["sharpness"]); ok {
			s.Enhancements.Sharpness = v
		}
		if v, ok := toFloat(enh["contrast"]); ok {
			s.Enhancements.Contrast = v
		}
		if v, ok := toFloat(enh["brightness"]); ok {
			s.Enhancements.Brightness = v
		}
		if v, ok := toFloat(enh["color"]); ok {
			s.Enhancements.Color = v
		}
	}

	if um, ok := merged["unsharp_mask"].(map[string]any); ok {
		mask := &UnsharpMask{Radius: 2, Percent: 150}
		if v, ok := toFloat(um["radius"]); ok && v > 0 {
			mask.Radius = v
		}
		if v, ok := toFloat(um["percent"]); ok && v > 0 {
			mask.Percent = v
		}
		s.Unsharp = mask
	}

	return s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toIntSlice(v any) ([]int, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		n, ok := toInt(item)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
