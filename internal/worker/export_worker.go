package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"coworkd/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// SnapshotFileName is the xlsx the worker maintains under the export dir.
const SnapshotFileName = "reservations.xlsx"

// SnapshotSource supplies the data the snapshot is built from.
type SnapshotSource interface {
	ListReservations(ctx context.Context) ([]models.Reservation, error)
	ListSpaces(ctx context.Context) ([]models.CoworkingSpace, error)
}

// ExportWorker rebuilds an xlsx snapshot of all reservations after
// mutations. Requests are coalesced; a full queue drops the request rather
// than blocking the caller, since the next mutation re-enqueues anyway.
type ExportWorker struct {
	source      SnapshotSource
	exportPath  string
	retryPolicy RetryPolicy
	queue       chan struct{}
	logger      *zerolog.Logger

	// writeMu serializes snapshot writes: the Run loop and the on-demand
	// export endpoint both target the same file.
	writeMu sync.Mutex
}

func NewExportWorker(source SnapshotSource, exportPath string, retry RetryPolicy, logger *zerolog.Logger) *ExportWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}

	return &ExportWorker{
		source:      source,
		exportPath:  exportPath,
		retryPolicy: retry,
		queue:       make(chan struct{}, models.ExportQueueSize),
		logger:      logger,
	}
}

// EnqueueSnapshot schedules a snapshot rebuild. Never blocks.
func (w *ExportWorker) EnqueueSnapshot(ctx context.Context) error {
	select {
	case w.queue <- struct{}{}:
	default:
	}
	return nil
}

// SnapshotPath returns the location of the current snapshot file.
func (w *ExportWorker) SnapshotPath() string {
	return filepath.Join(w.exportPath, SnapshotFileName)
}

// Run consumes the queue until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.queue:
			w.drain()
			err := w.retryPolicy.Do(ctx, func() error {
				return w.WriteSnapshot(ctx)
			})
			if err != nil && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("export snapshot failed")
			}
		}
	}
}

// drain coalesces queued requests into the rebuild that is about to run.
func (w *ExportWorker) drain() {
	for {
		select {
		case <-w.queue:
		default:
			return
		}
	}
}

// WriteSnapshot rebuilds the xlsx file from the current reservation set.
func (w *ExportWorker) WriteSnapshot(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := os.MkdirAll(w.exportPath, 0o755); err != nil {
		return fmt.Errorf("error creating export directory: %w", err)
	}

	reservations, err := w.source.ListReservations(ctx)
	if err != nil {
		return fmt.Errorf("error listing reservations: %w", err)
	}

	spaces, err := w.source.ListSpaces(ctx)
	if err != nil {
		return fmt.Errorf("error listing spaces: %w", err)
	}
	spaceNames := make(map[int64]string, len(spaces))
	for _, s := range spaces {
		spaceNames[s.ID] = s.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Reservations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Coworking Space", "Room", "User ID", "Start (UTC)", "End (UTC)", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	for i, r := range reservations {
		row := i + 2
		spaceName := spaceNames[r.SpaceID]
		if spaceName == "" {
			spaceName = fmt.Sprintf("space %d", r.SpaceID)
		}
		values := []interface{}{
			r.ID,
			spaceName,
			r.RoomNumber,
			r.UserID,
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			r.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "G", 22)
	_ = f.DeleteSheet("Sheet1")

	if err := f.SaveAs(w.SnapshotPath()); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}

	w.logger.Info().Str("file_path", w.SnapshotPath()).Int("reservations", len(reservations)).Msg("snapshot written")
	return nil
}
