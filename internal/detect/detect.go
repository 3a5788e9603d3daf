// Package detect holds the detection records produced by the external
// inference service. The viewer only consumes these records; it never runs
// inference itself.
package detect

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"dicom-viewer/pkg/geometry"
)

// Record is one AI-detected region. Coordinates are percentages [0,100] of
// the image surface, top-left origin. Out-of-range values are accepted and
// passed through; the inference pipeline is trusted to stay in range.
type Record struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

// Bounds returns the record's region as a percentage rectangle.
func (r Record) Bounds() geometry.RectPercent {
	return geometry.RectPercent{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// DisplayLabel returns the label annotated with the confidence as a whole
// percentage, e.g. "lesion (92%)". Confidence is never shown as a raw
// fraction.
func (r Record) DisplayLabel() string {
	return fmt.Sprintf("%s (%d%%)", r.Label, int(math.Round(r.Confidence*100)))
}

// InRange reports whether all coordinates lie within [0,100] and the
// confidence within [0,1].
func (r Record) InRange() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return r.Confidence >= 0 && r.Confidence <= 1
}

// Feed is the overlay state: the current detection records plus the
// visibility toggle.
type Feed struct {
	Records []Record `json:"detections"`
	Visible bool     `json:"-"`
}

// LoadFeed reads a detection feed written by the inference service.
// The file is a JSON object with a "detections" array.
func LoadFeed(path string) (Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Feed{}, err
	}
	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return Feed{}, fmt.Errorf("parse detection feed %s: %w", path, err)
	}
	return feed, nil
}
