package facedetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/menta2k/face-meme/pkg/types"
)

// DefaultEndpoint is the detection route of the face service.
const DefaultEndpoint = "/detect"

// Config holds face detector client settings.
type Config struct {
	URL      string
	Endpoint string
	Timeout  time.Duration
	// Quality of the JPEG sent to the service.
	Quality int
}

// Client posts images to a face detection service and returns the faces it
// found, highest score first.
type Client struct {
	url        string
	quality    int
	httpClient *http.Client
}

type detectResponse struct {
	Faces []struct {
		BBox      []float64   `json:"bbox"`
		Landmarks [][]float64 `json:"landmarks"`
		Score     float64     `json:"det_score"`
	} `json:"faces"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a face detector client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("face detector URL is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 95
	}
	return &Client{
		url:        strings.TrimSuffix(cfg.URL, "/") + "/" + strings.TrimPrefix(cfg.Endpoint, "/"),
		quality:    cfg.Quality,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Detect returns the faces in img in image coordinates. No faces is not an
// error.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]types.Face, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face detector request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face detector returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed detectResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse face detector response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("face detector error: %s", parsed.Error)
	}

	// the service works in the image's own coordinates starting at 0,0
	origin := img.Bounds().Min
	faces := make([]types.Face, 0, len(parsed.Faces))
	for _, f := range parsed.Faces {
		if len(f.BBox) != 4 {
			continue
		}
		rect := image.Rect(round(f.BBox[0]), round(f.BBox[1]), round(f.BBox[2]), round(f.BBox[3])).Add(origin)
		if rect.Empty() {
			continue
		}
		face := types.Face{Rect: rect, Score: f.Score}
		for _, pt := range f.Landmarks {
			if len(pt) < 2 {
				face.Landmarks = nil
				break
			}
			face.Landmarks = append(face.Landmarks, image.Pt(round(pt[0]), round(pt[1])).Add(origin))
		}
		faces = append(faces, face)
	}

	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Score > faces[j].Score
	})
	return faces, nil
}

func round(v float64) int {
	return int(math.Round(v))
}
