package insight

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeBoxFlatArray(t *testing.T) {
	box, err := normalizeBox(json.RawMessage(`[10.5, 20.0, 110.5, 140.0]`))
	if err != nil {
		t.Fatalf("normalizeBox: %v", err)
	}
	want := [4]float64{10.5, 20.0, 110.5, 140.0}
	if box != want {
		t.Errorf("Expected %v, got %v", want, box)
	}
}

func TestNormalizeBoxObjectFallback(t *testing.T) {
	box, err := normalizeBox(json.RawMessage(`{"x1":1,"y1":2,"x2":3,"y2":4}`))
	if err != nil {
		t.Fatalf("normalizeBox: %v", err)
	}
	want := [4]float64{1, 2, 3, 4}
	if box != want {
		t.Errorf("Expected %v, got %v", want, box)
	}
}

func TestNormalizeBoxErrors(t *testing.T) {
	cases := []string{``, `[1,2,3]`, `[1,2,3,4,5]`, `{"x1":1}`, `"nope"`}
	for _, c := range cases {
		if _, err := normalizeBox(json.RawMessage(c)); err == nil {
			t.Errorf("Expected error for box %q", c)
		}
	}
}

func TestNormalizeScorePrecedence(t *testing.T) {
	det := 0.93
	gen := 0.5

	tests := []struct {
		name string
		rf   rawFace
		want float64
	}{
		{"det_score wins", rawFace{DetScore: &det, Score: &gen}, 0.93},
		{"score fallback", rawFace{Score: &gen}, 0.5},
		{"default zero", rawFace{}, 0.0},
	}

	for _, tt := range tests {
		if got := normalizeScore(tt.rf); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestNormalizeEmbedding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []float64
	}{
		{"absent", ``, []float64{}},
		{"null", `null`, []float64{}},
		{"flat", `[0.1, 0.2]`, []float64{0.1, 0.2}},
		{"nested row vector", `[[0.1, 0.2], [0.3]]`, []float64{0.1, 0.2, 0.3}},
	}

	for _, tt := range tests {
		got, err := normalizeEmbedding(json.RawMessage(tt.raw))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got == nil {
			t.Errorf("%s: embedding must never be nil", tt.name)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if _, err := normalizeEmbedding(json.RawMessage(`"base64!"`)); err == nil {
		t.Error("Expected error for unusable embedding")
	}
}

func TestDecodeFacesEnvelope(t *testing.T) {
	body := `{"faces":[{"bbox":[1,2,3,4],"det_score":0.9,"embedding":[0.5]}]}`

	faces, err := DecodeFaces([]byte(body))
	if err != nil {
		t.Fatalf("DecodeFaces: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(faces))
	}
	if faces[0].Score != 0.9 {
		t.Errorf("Expected score 0.9, got %v", faces[0].Score)
	}
	if !reflect.DeepEqual(faces[0].Embedding, []float64{0.5}) {
		t.Errorf("Expected embedding [0.5], got %v", faces[0].Embedding)
	}
}

func TestDecodeFacesBareArray(t *testing.T) {
	body := `[{"bbox":{"x1":5,"y1":6,"x2":7,"y2":8},"score":0.4}]`

	faces, err := DecodeFaces([]byte(body))
	if err != nil {
		t.Fatalf("DecodeFaces: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("Expected 1 face, got %d", len(faces))
	}
	if faces[0].Box != [4]float64{5, 6, 7, 8} {
		t.Errorf("Unexpected box %v", faces[0].Box)
	}
	if faces[0].Score != 0.4 {
		t.Errorf("Expected score 0.4, got %v", faces[0].Score)
	}
	if len(faces[0].Embedding) != 0 || faces[0].Embedding == nil {
		t.Errorf("Expected empty non-nil embedding, got %#v", faces[0].Embedding)
	}
}

func TestDecodeFacesEmpty(t *testing.T) {
	for _, body := range []string{`{"faces":[]}`, `[]`} {
		faces, err := DecodeFaces([]byte(body))
		if err != nil {
			t.Fatalf("DecodeFaces(%q): %v", body, err)
		}
		if faces == nil || len(faces) != 0 {
			t.Errorf("DecodeFaces(%q): expected empty non-nil slice, got %#v", body, faces)
		}
	}
}
