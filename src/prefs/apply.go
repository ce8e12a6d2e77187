package prefs

import (
	"fmt"
	"math"
	"strconv"
)

func apply(p *Preferences, key string, value any) error {
	var err error
	switch key {
	case KeyDarkMode:
		p.DarkMode, err = toBool(value)
	case KeyReminderIntervalMs:
		p.ReminderIntervalMs, err = toInt(value)
	case KeyCameraEnabled:
		p.CameraEnabled, err = toBool(value)
	case KeyEyeExercisesEnabled:
		p.EyeExercisesEnabled, err = toBool(value)
	case KeyExerciseIntervalMin:
		p.ExerciseIntervalMin, err = toInt(value)
	case KeyPopupPosition:
		p.PopupPosition, err = toPoint(value)
	case KeyPopupSize:
		p.PopupSize, err = toSize(value)
	case KeyPopupColors:
		p.PopupColors, err = toColors(value, p.PopupColors)
	case KeyPopupMessage:
		p.PopupMessage, err = toString(value)
	case KeyIsTracking:
		p.IsTracking, err = toBool(value)
	case KeyKeyboardShortcut:
		p.KeyboardShortcut, err = toString(value)
	case KeyMgdMode:
		p.MgdMode, err = toBool(value)
	case KeySoundEnabled:
		p.SoundEnabled, err = toBool(value)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	if err != nil {
		return fmt.Errorf("preference %s: %w", key, err)
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("want bool, got %T", v)
	}
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("want integer, got %v", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("want string, got %T", v)
	}
	return s, nil
}

func toPoint(v any) (*Point, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *Point:
		if x == nil {
			return nil, nil
		}
		p := *x
		return &p, nil
	case Point:
		return &x, nil
	case map[string]any:
		px, err := toInt(x["x"])
		if err != nil {
			return nil, fmt.Errorf("x: %w", err)
		}
		py, err := toInt(x["y"])
		if err != nil {
			return nil, fmt.Errorf("y: %w", err)
		}
		return &Point{X: px, Y: py}, nil
	default:
		return nil, fmt.Errorf("want point, got %T", v)
	}
}

func toSize(v any) (Size, error) {
	switch x := v.(type) {
	case Size:
		return x, nil
	case map[string]any:
		w, err := toInt(x["width"])
		if err != nil {
			return Size{}, fmt.Errorf("width: %w", err)
		}
		h, err := toInt(x["height"])
		if err != nil {
			return Size{}, fmt.Errorf("height: %w", err)
		}
		return Size{Width: w, Height: h}, nil
	default:
		return Size{}, fmt.Errorf("want size, got %T", v)
	}
}

// toColors accepts a full Colors value or a partial map merged over cur.
func toColors(v any, cur Colors) (Colors, error) {
	switch x := v.(type) {
	case Colors:
		return x, nil
	case map[string]any:
		out := cur
		if bg, ok := x["background"]; ok {
			s, err := toString(bg)
			if err != nil {
				return cur, fmt.Errorf("background: %w", err)
			}
			out.Background = s
		}
		if fg, ok := x["text"]; ok {
			s, err := toString(fg)
			if err != nil {
				return cur, fmt.Errorf("text: %w", err)
			}
			out.Text = s
		}
		if tr, ok := x["transparencyRatio"]; ok {
			f, err := toFloat(tr)
			if err != nil {
				return cur, fmt.Errorf("transparencyRatio: %w", err)
			}
			out.TransparencyRatio = f
		}
		return out, nil
	default:
		return cur, fmt.Errorf("want colors, got %T", v)
	}
}
