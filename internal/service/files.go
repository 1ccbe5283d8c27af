package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printwatch"
	"printwatch/internal/gcode"
	"printwatch/internal/logger"
	"printwatch/internal/printer"
	"printwatch/internal/repository"
)

var errEmptyFilename = errors.New("filename is required")

type FilesService struct {
	printer   PrinterController
	jobRepo   repository.JobRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewFilesService(ctrl PrinterController, jobRepo repository.JobRepo, eventRepo repository.EventRepo, log *logger.Logger) *FilesService {
	return &FilesService{printer: ctrl, jobRepo: jobRepo, eventRepo: eventRepo, log: log}
}

// List returns the device storage listing. An empty listing is a normal
// outcome on firmware that does not expose directory contents.
func (s *FilesService) List(ctx context.Context) ([]printer.FileEntry, error) {
	if !s.printer.Snapshot().Connected {
		return nil, ErrNotConnected
	}
	return s.printer.ListFiles(), nil
}

// Upload scrapes slicer metadata, records the job in the catalog, optionally
// streams the file to the device and optionally starts printing it.
// Metadata is returned even when the device transfer is skipped or fails.
func (s *FilesService) Upload(ctx context.Context, p UploadParams) (gcode.Metadata, error) {
	if p.Filename == "" {
		return gcode.Metadata{}, errEmptyFilename
	}
	meta := gcode.Parse(p.Filename, p.Content)

	if err := s.jobRepo.Save(ctx, printwatch.PrintJob{
		Filename:         p.Filename,
		SizeBytes:        int64(len(p.Content)),
		EstimatedSeconds: meta.EstimatedSeconds,
		FilamentGrams:    meta.FilamentUsedGrams,
	}); err != nil {
		return meta, err
	}
	_ = s.eventRepo.Append(ctx, printwatch.PrintEvent{
		Type:        printwatch.EventUpload,
		Description: "Uploaded " + p.Filename,
		Metadata: map[string]any{
			"size_bytes":  len(p.Content),
			"estimated_s": meta.EstimatedSeconds,
		},
	})

	if !p.ToPrinter {
		return meta, nil
	}
	if !s.printer.Snapshot().Connected {
		return meta, ErrNotConnected
	}
	if !s.printer.UploadFile(p.Filename, p.Content) {
		return meta, fmt.Errorf("upload of %q to printer failed", p.Filename)
	}
	if p.StartAfter {
		return meta, s.StartPrint(ctx, p.Filename)
	}
	return meta, nil
}

// StartPrint selects and starts a stored file, stamping the job start time
// that the remaining-time estimate works from.
func (s *FilesService) StartPrint(ctx context.Context, filename string) error {
	if filename == "" {
		return errEmptyFilename
	}
	if !s.printer.Snapshot().Connected {
		return ErrNotConnected
	}
	if !s.printer.StartPrint(filename) {
		return fmt.Errorf("%w: start print %q", ErrRejected, filename)
	}
	now := time.Now().UTC()
	if err := s.jobRepo.MarkStarted(ctx, filename, now); err != nil {
		s.log.Warnw("job_mark_started_failed", "file", filename, "err", err)
	}
	_ = s.eventRepo.Append(ctx, printwatch.PrintEvent{
		Type:        printwatch.EventPrintStarted,
		Description: "Started printing " + filename,
	})
	return nil
}

// Delete removes a stored file from the device.
func (s *FilesService) Delete(ctx context.Context, filename string) error {
	if filename == "" {
		return errEmptyFilename
	}
	if !s.printer.Snapshot().Connected {
		return ErrNotConnected
	}
	if !s.printer.DeleteFile(filename) {
		return fmt.Errorf("%w: delete %q", ErrRejected, filename)
	}
	return nil
}
