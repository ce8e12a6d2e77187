package detector

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status lines the detector prints at well-known points of its lifecycle.
const (
	StatusStandby        = "Starting blink detector in standby mode..."
	StatusModelsLoaded   = "Models loaded successfully, ready for camera activation"
	StatusCameraOpened   = "Camera opened successfully"
	StatusCameraStarted  = "Camera started successfully"
	StatusCameraReleased = "Camera released"
	StatusCameraStopped  = "Camera stopped"
)

// Capture settings sent once the models are loaded.
const (
	TargetFPS        = 10
	ProcessingWidth  = 320
	ProcessingHeight = 240
)

var (
	ErrUnrecognized = errors.New("detector: unrecognised line")
	ErrAmbiguous    = errors.New("detector: line carries more than one event")
)

// Command is one line written to the detector's stdin. The detector applies
// a single setting per line.
type Command struct {
	StartCamera          bool  `json:"start_camera,omitempty"`
	StopCamera           bool  `json:"stop_camera,omitempty"`
	RequestVideo         bool  `json:"request_video,omitempty"`
	TargetFPS            int   `json:"target_fps,omitempty"`
	ProcessingResolution []int `json:"processing_resolution,omitempty"`
}

// Kind identifies the payload of an event line.
type Kind int

const (
	KindDebug Kind = iota
	KindStatus
	KindError
	KindBlink
	KindFaceData
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindDebug:
		return "debug"
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindBlink:
		return "blink"
	case KindFaceData:
		return "faceData"
	case KindVideo:
		return "videoStream"
	default:
		return "unknown"
	}
}

var eventKeys = map[string]Kind{
	"debug":       KindDebug,
	"status":      KindStatus,
	"error":       KindError,
	"blink":       KindBlink,
	"faceData":    KindFaceData,
	"videoStream": KindVideo,
}

// Blink carries the measurements reported with a blink.
type Blink struct {
	EAR            float64 `json:"ear"`
	Baseline       float64 `json:"baseline"`
	DropPercentage float64 `json:"drop_percentage"`
	Duration       float64 `json:"duration"`
	Time           float64 `json:"time"`
}

// Event is a decoded stdout line.
type Event struct {
	Kind     Kind
	Text     string
	Blink    Blink
	FaceData json.RawMessage
	Video    string
}

// ParseLine decodes one stdout line.
func ParseLine(line []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return Event{}, fmt.Errorf("detector: malformed line: %w", err)
	}

	var (
		key  string
		kind Kind
		n    int
	)
	for k := range fields {
		if kd, ok := eventKeys[k]; ok {
			key, kind = k, kd
			n++
		}
	}
	switch {
	case n == 0:
		return Event{}, ErrUnrecognized
	case n > 1:
		return Event{}, ErrAmbiguous
	}

	ev := Event{Kind: kind}
	raw := fields[key]
	switch kind {
	case KindDebug, KindStatus, KindError:
		if err := json.Unmarshal(raw, &ev.Text); err != nil {
			return Event{}, fmt.Errorf("detector: %s is not a string: %w", key, err)
		}
	case KindBlink:
		var flag bool
		if err := json.Unmarshal(raw, &flag); err != nil || !flag {
			return Event{}, fmt.Errorf("%w: blink=%s", ErrUnrecognized, raw)
		}
		if err := json.Unmarshal(line, &ev.Blink); err != nil {
			return Event{}, fmt.Errorf("detector: blink fields: %w", err)
		}
	case KindFaceData:
		ev.FaceData = append(json.RawMessage(nil), raw...)
	case KindVideo:
		if err := json.Unmarshal(raw, &ev.Video); err != nil {
			return Event{}, fmt.Errorf("detector: videoStream is not a string: %w", err)
		}
	}
	return ev, nil
}
