package service

import (
	"context"
	"time"

	"printwatch/internal/gcode"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
)

type MonitoringService struct {
	printer PrinterController
	jobRepo repository.JobRepo
	now     func() time.Time
}

func NewMonitoringService(ctrl PrinterController, jobRepo repository.JobRepo) *MonitoringService {
	return &MonitoringService{printer: ctrl, jobRepo: jobRepo, now: time.Now}
}

// Status returns the latest snapshot plus the remaining-time estimate for the
// active job. The estimate only exists while a print is running and the
// active job carries a slicer time estimate.
func (s *MonitoringService) Status(ctx context.Context) (StatusReport, error) {
	snap := s.printer.Snapshot()
	rep := StatusReport{State: snap, TimeRemainingFormatted: gcode.FormatDuration(0)}

	if snap.Status != printer.StatusPrinting {
		return rep, nil
	}
	job, err := s.jobRepo.Latest(ctx)
	if err != nil {
		// No catalog entry (print started from the touchscreen) is normal.
		return rep, nil
	}
	rep.JobFilename = job.Filename
	if job.EstimatedSeconds <= 0 || job.StartedAt.IsZero() {
		return rep, nil
	}

	rep.TimeRemainingSeconds = s.estimateRemaining(job.EstimatedSeconds, job.StartedAt, snap.Progress)
	rep.TimeRemainingFormatted = gcode.FormatDuration(rep.TimeRemainingSeconds)
	return rep, nil
}

// estimateRemaining blends two estimators: total-minus-elapsed wall clock and
// the progress-percentage projection. Both are rough; the even split keeps the
// output between them. The 50/50 weighting has not been validated against
// real prints.
func (s *MonitoringService) estimateRemaining(totalSeconds int, startedAt time.Time, progress int) int {
	elapsed := int(s.now().Sub(startedAt).Seconds())
	remaining := totalSeconds - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if progress > 0 {
		byProgress := totalSeconds * (100 - progress) / 100
		remaining = (remaining + byProgress) / 2
	}
	return remaining
}
