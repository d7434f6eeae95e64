package insight

import (
	"encoding/json"
	"fmt"

	"github.com/lumina-photos/face-detect/pkg/types"
)

// rawFace is one face record as the daemon sends it. The fields are kept
// loose on purpose: depending on the daemon's insightface version, the box
// arrives as a flat array or a keyed object, the confidence lives under
// det_score or score, and the embedding may be missing, null, or nested.
type rawFace struct {
	Bbox      json.RawMessage `json:"bbox"`
	DetScore  *float64        `json:"det_score"`
	Score     *float64        `json:"score"`
	Embedding json.RawMessage `json:"embedding"`
}

// objectBox is the keyed bounding-box form older daemons emit.
type objectBox struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
}

// DecodeFaces parses a detect response. Newer daemons wrap the records in
// a {"faces": [...]} envelope, older ones return the bare array.
func DecodeFaces(data []byte) ([]types.Face, error) {
	var envelope struct {
		Faces []rawFace `json:"faces"`
	}
	var raws []rawFace
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Faces != nil {
		raws = envelope.Faces
	} else if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse detect response: %w", err)
	}

	faces := make([]types.Face, 0, len(raws))
	for i, rf := range raws {
		face, err := normalizeFace(rf)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// normalizeFace converts one raw record into the stable output shape.
func normalizeFace(rf rawFace) (types.Face, error) {
	box, err := normalizeBox(rf.Bbox)
	if err != nil {
		return types.Face{}, err
	}

	emb, err := normalizeEmbedding(rf.Embedding)
	if err != nil {
		return types.Face{}, err
	}

	return types.Face{
		Box:       box,
		Score:     normalizeScore(rf),
		Embedding: emb,
	}, nil
}

// normalizeBox tries the flat [x1,y1,x2,y2] array first and falls back to
// the keyed object form only when that fails.
func normalizeBox(raw json.RawMessage) ([4]float64, error) {
	if len(raw) == 0 {
		return [4]float64{}, fmt.Errorf("face record has no bounding box")
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) != 4 {
			return [4]float64{}, fmt.Errorf("bounding box has %d coordinates, want 4", len(flat))
		}
		return [4]float64{flat[0], flat[1], flat[2], flat[3]}, nil
	}

	var obj objectBox
	if err := json.Unmarshal(raw, &obj); err != nil {
		return [4]float64{}, fmt.Errorf("unusable bounding box %s", raw)
	}
	if obj.X1 == nil || obj.Y1 == nil || obj.X2 == nil || obj.Y2 == nil {
		return [4]float64{}, fmt.Errorf("bounding box object missing coordinates")
	}
	return [4]float64{*obj.X1, *obj.Y1, *obj.X2, *obj.Y2}, nil
}

// normalizeScore prefers det_score, falls back to score, defaults to 0.
func normalizeScore(rf rawFace) float64 {
	if rf.DetScore != nil {
		return *rf.DetScore
	}
	if rf.Score != nil {
		return *rf.Score
	}
	return 0.0
}

// normalizeEmbedding always yields a non-nil slice: a missing or null
// embedding becomes an empty one. The flat array form is tried first; a
// nested [[...]] row vector is flattened only when that fails.
func normalizeEmbedding(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []float64{}, nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat == nil {
			flat = []float64{}
		}
		return flat, nil
	}

	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("unusable embedding %s", truncate(raw, 64))
	}
	out := []float64{}
	for _, row := range nested {
		out = append(out, row...)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
