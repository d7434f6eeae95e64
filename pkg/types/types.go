package types

import "encoding/json"

// Size is a detector input size in pixels (width, height).
type Size struct {
	W int
	H int
}

// MarshalJSON encodes the size as the two-element [w,h] array the detector
// wire format uses.
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.W, s.H})
}

// UnmarshalJSON accepts the two-element array form.
func (s *Size) UnmarshalJSON(data []byte) error {
	var arr [2]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	s.W, s.H = arr[0], arr[1]
	return nil
}

// Face is one normalized detection result. Box is [x1,y1,x2,y2] in source
// pixel coordinates. Embedding is empty, never null, when the model did not
// produce one.
type Face struct {
	Box       [4]float64 `json:"box"`
	Score     float64    `json:"score"`
	Embedding []float64  `json:"embedding"`
}

// ManifestEntry names one image inside a batch working directory.
type ManifestEntry struct {
	PhotoID  string `json:"photoId"`
	Filename string `json:"filename"`
}

// Manifest is the parsed batch.json. Files stays nil when the "files" key
// is absent, which callers must treat differently from an empty list.
type Manifest struct {
	Files []ManifestEntry `json:"files"`
}

// BatchResult is the per-image outcome within a batch response. Exactly one
// exists per manifest entry; Error is null on success.
type BatchResult struct {
	PhotoID string  `json:"photoId"`
	Faces   []Face  `json:"faces"`
	Error   *string `json:"error"`
}

// FacesOutput is the single-image success envelope.
type FacesOutput struct {
	Faces []Face `json:"faces"`
}

// ResultsOutput is the batch success envelope.
type ResultsOutput struct {
	Results []BatchResult `json:"results"`
}

// ErrorOutput is the failure envelope shared by both modes.
type ErrorOutput struct {
	Error string `json:"error"`
}
