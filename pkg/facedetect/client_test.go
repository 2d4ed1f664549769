package facedetect

import (
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect" {
			http.Error(w, "wrong route", http.StatusNotFound)
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if _, err := jpeg.DecodeConfig(file); err != nil {
			http.Error(w, "not a jpeg", http.StatusBadRequest)
			return
		}

		landmarks := "["
		for i := 0; i < 68; i++ {
			if i > 0 {
				landmarks += ","
			}
			landmarks += "[60.4, 70.6]"
		}
		landmarks += "]"

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"faces": [
			{"bbox": [10, 10, 30, 30], "landmarks": [], "det_score": 0.4},
			{"bbox": [40.2, 50.7, 120, 140], "landmarks": ` + landmarks + `, "det_score": 0.98},
			{"bbox": [1, 2, 3], "det_score": 0.99}
		]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	faces, err := c.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 200, 200)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("Expected 2 faces, got %d", len(faces))
	}

	first := faces[0]
	if first.Rect != image.Rect(40, 51, 120, 140) {
		t.Errorf("Expected best face first, got %v", first.Rect)
	}
	if !first.Landmarks.Complete() {
		t.Errorf("Expected 68 landmarks, got %d", len(first.Landmarks))
	}
	if first.Landmarks[0] != image.Pt(60, 71) {
		t.Errorf("landmark = %v, want (60,71)", first.Landmarks[0])
	}
	if faces[1].Landmarks.Complete() {
		t.Error("second face has no landmarks")
	}
}

func TestDetectNoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces": []}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{URL: srv.URL})
	faces, err := c.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 50, 50)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("Expected no faces, got %d", len(faces))
	}
}

func TestDetectErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/error":
			w.Write([]byte(`{"error": "model not loaded"}`))
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for _, endpoint := range []string{"/fail", "/error", "/garbage"} {
		c, _ := NewClient(Config{URL: srv.URL, Endpoint: endpoint})
		if _, err := c.Detect(context.Background(), img); err == nil {
			t.Errorf("%s: expected error", endpoint)
		}
	}

	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for missing URL")
	}
}
