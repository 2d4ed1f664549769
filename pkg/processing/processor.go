package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/face-meme/pkg/analyzer"
	"github.com/menta2k/face-meme/pkg/types"
)

// MaxDownloadBytes caps the body read by LoadImageFromURL.
const MaxDownloadBytes = 20 << 20

// Processor prepares images for the model backends and draws debug overlays.
type Processor struct {
	analyzer *analyzer.ImageAnalyzer
	client   *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return NewProcessorWithAnalyzer(analyzer.New())
}

// NewProcessorWithAnalyzer creates a processor decoding through a.
func NewProcessorWithAnalyzer(a *analyzer.ImageAnalyzer) *Processor {
	return &Processor{
		analyzer: a,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImageFromURL downloads and decodes an image from a URL
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Face-Meme/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.analyzer.DecodeBytes(imageData)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.analyzer.LoadImage(source)
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if quality <= 0 {
			quality = 90
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EnhanceForModel returns a grayscale copy of img with boosted contrast.
// Expression classifiers read faces in poor light better this way.
func (p *Processor) EnhanceForModel(img image.Image, contrast float64) *image.NRGBA {
	gray := imaging.Grayscale(img)
	if contrast == 0 {
		return gray
	}
	return imaging.AdjustContrast(gray, contrast)
}

// Overlay describes what CreateDebugOverlay draws. Empty rectangles are
// skipped.
type Overlay struct {
	Face      image.Rectangle
	SafeZone  image.Rectangle
	Region    image.Rectangle
	Landmarks types.Landmarks
}

// CreateDebugOverlay draws the face box, safe zone, selected region and
// landmarks onto a copy of img.
func (p *Processor) CreateDebugOverlay(img image.Image, o Overlay) *image.NRGBA {
	nrgba := imaging.Clone(img)
	origin := img.Bounds().Min
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	green := color.NRGBA{0, 255, 0, 255}  // face
	gold := color.NRGBA{255, 204, 0, 255} // safe zone
	red := color.NRGBA{255, 0, 0, 255}    // region
	blue := color.NRGBA{0, 170, 255, 255} // landmarks
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))
	dot := int(math.Max(2, 0.005*float64(min(w, h))))

	drawBox(nrgba, o.SafeZone.Sub(origin), gold, stroke)
	drawBox(nrgba, o.Face.Sub(origin), green, stroke)
	drawBox(nrgba, o.Region.Sub(origin), red, stroke)

	for _, pt := range o.Landmarks {
		pt = pt.Sub(origin)
		for d := -dot; d <= dot; d++ {
			drawHLine(nrgba, pt.Y+d, pt.X-dot, pt.X+dot+1, blue)
		}
	}

	return nrgba
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Empty() {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	x0 = max(x0, 0)
	x1 = min(x1, img.Bounds().Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	y0 = max(y0, 0)
	y1 = min(y1, img.Bounds().Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
