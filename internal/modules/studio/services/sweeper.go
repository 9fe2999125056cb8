package services

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pixelmuse/pixelmuse-backend/internal/modules/studio/repositories"
	"github.com/pixelmuse/pixelmuse-backend/internal/shared/utils"
)

// Sweeper closes generation records stuck in processing, which happens
// when the process died mid-attempt and nothing reconciled the record.
type Sweeper struct {
	generationRepo repositories.GenerationRepo
	maxAge         time.Duration
	cron           *cron.Cron
}

func NewSweeper(generationRepo repositories.GenerationRepo, generationTimeout time.Duration) *Sweeper {
	return &Sweeper{
		generationRepo: generationRepo,
		// grace beyond the pipeline's own deadline so a live attempt is
		// never swept
		maxAge: generationTimeout + 2*time.Minute,
		cron:   cron.New(),
	}
}

// Start schedules the sweep every minute.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every 1m", s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	closed, err := s.generationRepo.FailStaleProcessing(cutoff, "generation timed out")
	if err != nil {
		utils.LogError("stale generation sweep failed", err, nil)
		return
	}
	if closed > 0 {
		utils.LogWarn("closed stale generations", map[string]interface{}{
			"count": closed,
		})
	}
}
