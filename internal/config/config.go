package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Fusion       FusionConfig       `json:"fusion"`
	Region       RegionConfig       `json:"region"`
	Typography   TypographyConfig   `json:"typography"`
	Classifiers  ClassifiersConfig  `json:"classifiers"`
	FaceDetector FaceDetectorConfig `json:"face_detector"`
	Caption      CaptionConfig      `json:"caption"`
	Server       ServerConfig       `json:"server"`
	Output       OutputConfig       `json:"output"`
}

// FusionConfig holds configuration for emotion fusion and its retry loop
type FusionConfig struct {
	PrimaryWeight   float64 `json:"primary_weight"`
	SecondaryWeight float64 `json:"secondary_weight"`
	TopN            int     `json:"top_n"`
	DropThreshold   float64 `json:"drop_threshold"`
	MaxRetries      int     `json:"max_retries"`
	RetryDelayMS    int     `json:"retry_delay_ms"`
}

// RegionConfig holds configuration for text region selection
type RegionConfig struct {
	SafeZoneScale     float64 `json:"safe_zone_scale"`
	ShortCaptionRunes int     `json:"short_caption_runes"`
}

// TypographyConfig holds configuration for fonts, sizing and colors
type TypographyConfig struct {
	FontPath         string  `json:"font_path"`
	FitFraction      float64 `json:"fit_fraction"`
	StartFontSize    int     `json:"start_font_size"`
	MaxFontSize      int     `json:"max_font_size"`
	VerticalSpacing  int     `json:"vertical_spacing"`
	ShadowThreshold  float64 `json:"shadow_threshold"`
	OutlineThreshold float64 `json:"outline_threshold"`
	CornerFraction   float64 `json:"corner_fraction"`
	CornerMaxSide    int     `json:"corner_max_side"`
	DominantClusters int     `json:"dominant_clusters"`
}

// ClassifierConfig describes one vision model backend used as an emotion
// classifier. Backend is "ollama", "llamacpp" or "" (disabled).
type ClassifierConfig struct {
	Backend   string `json:"backend"`
	URL       string `json:"url"`
	Model     string `json:"model"`
	SendSize  int    `json:"send_size"`
	Quality   int    `json:"quality"`
	Enhance   bool   `json:"enhance"`
	TimeoutMS int    `json:"timeout_ms"`
}

// ClassifiersConfig holds both emotion classifiers
type ClassifiersConfig struct {
	Primary   ClassifierConfig `json:"primary"`
	Secondary ClassifierConfig `json:"secondary"`
}

// FaceDetectorConfig holds configuration for the face detection service
type FaceDetectorConfig struct {
	URL       string `json:"url"`
	Endpoint  string `json:"endpoint"`
	TimeoutMS int    `json:"timeout_ms"`
}

// CaptionConfig holds configuration for caption generation. Provider is
// "openai", "gemini" or "none".
type CaptionConfig struct {
	Provider    string `json:"provider"`
	BaseURL     string `json:"base_url"`
	Model       string `json:"model"`
	APIKey      string `json:"api_key,omitempty"`
	PhrasesPath string `json:"phrases_path"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// ServerConfig holds configuration for the HTTP surface
type ServerConfig struct {
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	UploadDir         string   `json:"upload_dir"`
	ProcessedDir      string   `json:"processed_dir"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	AllowedExtensions []string `json:"allowed_extensions"`
	RetentionHours    int      `json:"retention_hours"`
	SweepSchedule     string   `json:"sweep_schedule"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format    string `json:"format"`
	Quality   int    `json:"quality"`
	OutputDir string `json:"output_dir"`
	Prefix    string `json:"prefix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Fusion: FusionConfig{
			PrimaryWeight:   0.5,
			SecondaryWeight: 0.5,
			TopN:            3,
			DropThreshold:   0.2,
			MaxRetries:      3,
			RetryDelayMS:    100,
		},
		Region: RegionConfig{
			SafeZoneScale:     2.0,
			ShortCaptionRunes: 2,
		},
		Typography: TypographyConfig{
			FitFraction:      0.9,
			StartFontSize:    10,
			MaxFontSize:      512,
			VerticalSpacing:  10,
			ShadowThreshold:  60,
			OutlineThreshold: 80,
			CornerFraction:   0.3,
			CornerMaxSide:    200,
			DominantClusters: 1,
		},
		Classifiers: ClassifiersConfig{
			Primary: ClassifierConfig{
				Backend:   "ollama",
				URL:       "http://localhost:11434",
				Model:     "llava:7b",
				SendSize:  224,
				Quality:   90,
				Enhance:   true,
				TimeoutMS: 60000,
			},
			Secondary: ClassifierConfig{
				Backend:   "llamacpp",
				URL:       "http://localhost:8080",
				Model:     "qwen2.5-vl",
				SendSize:  336,
				Quality:   90,
				TimeoutMS: 60000,
			},
		},
		FaceDetector: FaceDetectorConfig{
			URL:       "http://localhost:5001",
			Endpoint:  "/detect",
			TimeoutMS: 30000,
		},
		Caption: CaptionConfig{
			Provider:  "openai",
			BaseURL:   "https://api.deepseek.com/v1",
			Model:     "deepseek-chat",
			TimeoutMS: 20000,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              5000,
			UploadDir:         "./static/uploads",
			ProcessedDir:      "./static/processed",
			MaxUploadBytes:    5 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "webp"},
			RetentionHours:    0,
			SweepSchedule:     "@hourly",
		},
		Output: OutputConfig{
			Format:    "jpg",
			Quality:   90,
			OutputDir: "./output",
			Prefix:    "meme_",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// secrets stay in the environment
	cp := *c
	cp.Caption.APIKey = ""

	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from environment variables. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := firstNonEmpty(getenv("CAPTION_API_KEY"), getenv("DEEPSEEK_API_KEY")); v != "" {
		c.Caption.APIKey = v
	}
	if v := getenv("CAPTION_PROVIDER"); v != "" {
		c.Caption.Provider = strings.ToLower(v)
	}
	if v := getenv("GEMINI_API_KEY"); v != "" && c.Caption.Provider == "gemini" {
		c.Caption.APIKey = v
	}
	if v := getenv("FACE_DETECTOR_URL"); v != "" {
		c.FaceDetector.URL = v
	}
	if v := getenv("OLLAMA_URL"); v != "" {
		setBackendURL(&c.Classifiers, "ollama", v)
	}
	if v := getenv("LLAMACPP_URL"); v != "" {
		setBackendURL(&c.Classifiers, "llamacpp", v)
	}
	if v := getenv("FONT_PATH"); v != "" {
		c.Typography.FontPath = v
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setBackendURL(c *ClassifiersConfig, backend, url string) {
	for _, cl := range []*ClassifierConfig{&c.Primary, &c.Secondary} {
		if cl.Backend == backend {
			cl.URL = url
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	f := c.Fusion
	if f.PrimaryWeight < 0 || f.SecondaryWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if sum := f.PrimaryWeight + f.SecondaryWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("fusion.primary_weight + fusion.secondary_weight must be 1, got %.3f", sum)
	}
	if f.TopN < 1 {
		return fmt.Errorf("fusion.top_n must be positive")
	}
	if f.DropThreshold < 0 || f.DropThreshold > 1 {
		return fmt.Errorf("fusion.drop_threshold must be between 0 and 1")
	}
	if f.MaxRetries < 1 {
		return fmt.Errorf("fusion.max_retries must be positive")
	}
	if f.RetryDelayMS < 0 {
		return fmt.Errorf("fusion.retry_delay_ms must not be negative")
	}

	if c.Region.SafeZoneScale <= 0 {
		return fmt.Errorf("region.safe_zone_scale must be positive")
	}
	if c.Region.ShortCaptionRunes < 0 {
		return fmt.Errorf("region.short_caption_runes must not be negative")
	}

	t := c.Typography
	if t.FitFraction <= 0 || t.FitFraction > 1 {
		return fmt.Errorf("typography.fit_fraction must be in (0, 1]")
	}
	if t.StartFontSize < 1 || t.MaxFontSize < t.StartFontSize {
		return fmt.Errorf("typography font sizes must satisfy 1 <= start_font_size <= max_font_size")
	}
	if t.OutlineThreshold < t.ShadowThreshold {
		return fmt.Errorf("typography.outline_threshold must not be below shadow_threshold")
	}
	if t.CornerFraction <= 0 || t.CornerFraction > 0.5 {
		return fmt.Errorf("typography.corner_fraction must be in (0, 0.5]")
	}
	if t.DominantClusters < 1 {
		return fmt.Errorf("typography.dominant_clusters must be positive")
	}

	for name, cl := range map[string]ClassifierConfig{"primary": c.Classifiers.Primary, "secondary": c.Classifiers.Secondary} {
		switch cl.Backend {
		case "":
		case "ollama", "llamacpp":
			if cl.URL == "" || cl.Model == "" {
				return fmt.Errorf("classifiers.%s needs url and model", name)
			}
		default:
			return fmt.Errorf("classifiers.%s.backend %q is not supported", name, cl.Backend)
		}
	}

	switch c.Caption.Provider {
	case "openai", "gemini", "none", "":
	default:
		return fmt.Errorf("caption.provider %q is not supported", c.Caption.Provider)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if len(c.Server.AllowedExtensions) == 0 {
		return fmt.Errorf("server.allowed_extensions cannot be empty")
	}
	if c.Server.RetentionHours < 0 {
		return fmt.Errorf("server.retention_hours must not be negative")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}
	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format %q is not supported", c.Output.Format)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "face-meme", "config.json")
}
