package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/menta2k/face-meme/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "face-meme",
	Short: "Turn photos of faces into captioned memes",
	Long: `face-meme detects the face in a photo, reads its emotion with two vision
models, asks a language model for a short caption and renders it in the
calmest region around the face.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.GetConfigPath()+")")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the config file, if any, and applies environment
// overrides. An explicit --config must exist; the default path may not.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
