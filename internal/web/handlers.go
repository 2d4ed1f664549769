package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/face-meme/internal/utils"
	"github.com/menta2k/face-meme/pkg/compose"
	"github.com/menta2k/face-meme/pkg/emotion"
)

// formField is the multipart field carrying the uploaded photo.
const formField = "image"

// GenerateResponse is the body returned by a successful upload.
type GenerateResponse struct {
	Original      string                `json:"original"`
	Processed     string                `json:"processed"`
	Caption       string                `json:"caption"`
	CaptionSource compose.CaptionSource `json:"caption_source"`
	Emotions      emotion.Sample        `json:"emotions"`
	FaceFound     bool                  `json:"face_found"`
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Generate stores an uploaded photo, composes a meme from it and answers with
// the URLs of both files.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Server
	if r.ContentLength > cfg.MaxUploadBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		respondError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formField)
	if err != nil {
		// a field submitted without a file arrives as a plain value
		if _, ok := r.MultipartForm.Value[formField]; ok {
			respondError(w, http.StatusBadRequest, "No file chosen")
			return
		}
		respondError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, "No file chosen")
		return
	}
	if !utils.AllowedFile(header.Filename, cfg.AllowedExtensions) {
		respondError(w, http.StatusBadRequest, "File format not supported")
		return
	}

	name := utils.GenerateUniqueFilename(header.Filename, time.Now())
	uploadPath, err := saveUpload(file, cfg.UploadDir, name)
	if err != nil {
		log.Printf("web: failed to store upload %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	if err := utils.EnsureDir(cfg.ProcessedDir); err != nil {
		log.Printf("web: failed to create %s: %v", cfg.ProcessedDir, err)
		respondError(w, http.StatusInternalServerError, "failed to store meme")
		return
	}
	outPath := utils.GenerateOutputFilename(uploadPath, cfg.ProcessedDir, s.config.Output.Prefix, s.config.Output.Format)

	res, err := s.composer.ComposeFile(r.Context(), uploadPath, outPath)
	if err != nil {
		log.Printf("web: compose %s failed: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to generate meme")
		return
	}

	respondJSON(w, http.StatusOK, GenerateResponse{
		Original:      staticURL(uploadsPrefix, name),
		Processed:     staticURL(processedPrefix, filepath.Base(outPath)),
		Caption:       res.Caption,
		CaptionSource: res.CaptionSource,
		Emotions:      res.Emotions.Sample,
		FaceFound:     res.FaceFound,
	})
}

func saveUpload(src io.Reader, dir, name string) (string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	return path, out.Close()
}
