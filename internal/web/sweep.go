package web

import (
	"fmt"
	"log"
	"time"

	"github.com/menta2k/face-meme/internal/utils"
	"github.com/robfig/cron/v3"
)

// startSweeper schedules the retention sweep. Nothing is scheduled when
// retention is disabled.
func (s *Server) startSweeper() error {
	cfg := s.config.Server
	if cfg.RetentionHours <= 0 {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, func() { s.Sweep(time.Now()) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	c.Start()
	s.cron = c

	log.Printf("web: sweeping files older than %dh on %q", cfg.RetentionHours, cfg.SweepSchedule)
	return nil
}

// Sweep deletes uploaded and processed files older than the retention window
// and returns how many were removed.
func (s *Server) Sweep(now time.Time) int {
	cfg := s.config.Server
	cutoff := now.Add(-time.Duration(cfg.RetentionHours) * time.Hour)

	total := 0
	for _, dir := range []string{cfg.UploadDir, cfg.ProcessedDir} {
		n, err := utils.SweepOlderThan(dir, cutoff)
		total += n
		if err != nil {
			log.Printf("web: sweep %s: %v", dir, err)
		}
	}
	if total > 0 {
		log.Printf("web: swept %d files", total)
	}
	return total
}
