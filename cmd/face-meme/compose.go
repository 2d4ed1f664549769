package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	facememe "github.com/menta2k/face-meme"
	"github.com/menta2k/face-meme/internal/utils"
	"github.com/menta2k/face-meme/pkg/compose"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var composeCmd = &cobra.Command{
	Use:   "compose <file|dir|url>...",
	Short: "Compose memes from local files, directories or URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().String("out", "", "Output directory (default output.output_dir)")
	composeCmd.Flags().Bool("debug", false, "Also write a debug overlay and the composition result as JSON")
}

// expandInputs replaces directories by the images they contain.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		if utils.DirExists(arg) {
			files, err := utils.ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			inputs = append(inputs, files...)
			continue
		}
		inputs = append(inputs, arg)
	}
	return inputs, nil
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outDir := mustGetString(cmd, "out")
	if outDir == "" {
		outDir = cfg.Output.OutputDir
	}
	debug := mustGetBool(cmd, "debug")

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no images found")
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx := context.Background()
	composer, err := buildComposer(ctx, cfg)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if len(inputs) > 1 {
		bar = progressbar.NewOptions(len(inputs),
			progressbar.OptionSetDescription("Composing memes"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
		)
	}

	failed := 0
	for _, in := range inputs {
		out := utils.GenerateOutputFilename(strings.TrimRight(in, "/"), outDir, cfg.Output.Prefix, cfg.Output.Format)
		if err := composeOne(ctx, composer, in, out, debug); err != nil {
			log.Printf("%s: %v", in, err)
			failed++
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(inputs))
	}
	return nil
}

func composeOne(ctx context.Context, mc *facememe.MemeComposer, in, out string, debug bool) error {
	img, err := mc.LoadImage(ctx, in)
	if err != nil {
		return err
	}

	res, err := mc.Compose(ctx, img)
	if err != nil {
		return err
	}
	if err := mc.SaveImage(res.Image, out); err != nil {
		return err
	}

	size := int64(0)
	if info, err := os.Stat(out); err == nil {
		size = info.Size()
	}
	log.Printf("wrote %s (%s) caption=%q source=%s", out, utils.FormatFileSize(size), res.Caption, res.CaptionSource)

	if debug {
		writeDebug(mc, img, res, out)
	}
	return nil
}

// writeDebug stores the overlay next to the meme and the result as JSON.
// Failures are logged only.
func writeDebug(mc *facememe.MemeComposer, img image.Image, res *compose.Result, out string) {
	base := strings.TrimSuffix(out, filepath.Ext(out))

	if res.FaceFound {
		dbgPath := base + "_debug.png"
		if err := mc.SaveImage(mc.DebugOverlay(img, res), dbgPath); err != nil {
			log.Printf("debug overlay save failed: %v", err)
		} else {
			log.Printf("wrote %s", dbgPath)
		}
	}

	js, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Printf("debug result encode failed: %v", err)
		return
	}
	if err := os.WriteFile(base+"_result.json", js, 0o644); err != nil {
		log.Printf("debug result save failed: %v", err)
	}
}
