// Package report renders booking schedules as Excel workbooks.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSchedule = "Schedule"
	sheetBookings = "Bookings"
	sheetEvents   = "Events"

	// MaxRangeDays caps one export.
	MaxRangeDays = 366
)

const (
	fillFree    = "#FFFFFF"
	fillPending = "#FFEB9C"
	fillBooked  = "#C6EFCE"
	fillHeader  = "#DDEBF7"
	fillUnit    = "#E2EFDA"
)

type Exporter struct {
	store  domain.Store
	dir    string
	logger *zerolog.Logger
}

func NewExporter(store domain.Store, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{store: store, dir: dir, logger: logger}
}

type snapshot struct {
	start, end     time.Time
	accommodations []*models.Accommodation
	bookings       []*models.Booking
	events         []*models.EventBooking
}

func (e *Exporter) load(ctx context.Context, start, end time.Time) (*snapshot, error) {
	start, end = models.DateOf(start), models.DateOf(end)
	if end.Before(start) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}
	if spanDays(start, end) > MaxRangeDays {
		return nil, domain.NewValidationError("end_date", "range must not exceed %d days", MaxRangeDays)
	}

	accs, err := e.store.ListAccommodations(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := e.store.ListBookingsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	evts, err := e.store.ListEventBookingsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &snapshot{start: start, end: end, accommodations: accs, bookings: bookings, events: evts}, nil
}

// Write streams the workbook for [start, end] to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, start, end time.Time) error {
	snap, err := e.load(ctx, start, end)
	if err != nil {
		return err
	}

	f, err := build(snap)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the workbook into the export directory and returns its path.
func (e *Exporter) SaveFile(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	snap, err := e.load(ctx, start, end)
	if err != nil {
		return "", err
	}
	f, err := build(snap)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(e.dir, FileName(snap.start, snap.end))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().Str("file_path", path).Int("bookings", len(snap.bookings)).Msg("Booking report saved")
	return path, nil
}

// spanDays counts the calendar days of the inclusive range [start, end].
func spanDays(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

func FileName(start, end time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", models.FormatDate(start), models.FormatDate(end))
}

func build(snap *snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetSchedule)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	writeSchedule(f, snap, styles)

	if _, err := f.NewSheet(sheetBookings); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	writeBookingRows(f, snap, styles)

	if _, err := f.NewSheet(sheetEvents); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	writeEventRows(f, snap, styles)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

type styleSet struct {
	title, header, unit, free, pending, booked int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	cell := func(fill string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		})
	}

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{fillHeader}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	if s.unit, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fillUnit}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	for dst, fill := range map[*int]string{&s.free: fillFree, &s.pending: fillPending, &s.booked: fillBooked} {
		if *dst, err = cell(fill); err != nil {
			return s, fmt.Errorf("create style: %w", err)
		}
	}
	return s, nil
}

// writeSchedule lays out accommodations as rows and dates as columns.
func writeSchedule(f *excelize.File, snap *snapshot, st styleSet) {
	_ = f.SetCellValue(sheetSchedule, "A1", fmt.Sprintf("Bookings %s - %s",
		models.FormatDate(snap.start), models.FormatDate(snap.end)))

	days := spanDays(snap.start, snap.end)
	for i := 0; i < days; i++ {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheetSchedule, cell, snap.start.AddDate(0, 0, i).Format("02 Jan"))
		_ = f.SetCellStyle(sheetSchedule, cell, cell, st.header)
	}

	byUnit := make(map[int64][]*models.Booking)
	for _, b := range snap.bookings {
		if b.Status == models.StatusCancelled {
			continue
		}
		byUnit[b.AccommodationID] = append(byUnit[b.AccommodationID], b)
	}

	for r, acc := range snap.accommodations {
		row := r + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetSchedule, cell, fmt.Sprintf("%s (%s, %d)", acc.Name, acc.Type, acc.Capacity))
		_ = f.SetCellStyle(sheetSchedule, cell, cell, st.unit)

		for i := 0; i < days; i++ {
			date := snap.start.AddDate(0, 0, i)
			cell, _ := excelize.CoordinatesToCellName(i+2, row)

			var lines []string
			style := st.free
			for _, b := range byUnit[acc.ID] {
				if !b.Interval().Contains(date) {
					continue
				}
				lines = append(lines, fmt.Sprintf("#%d %s %s", b.ID, b.TimeSlot, b.Status))
				switch {
				case b.Status == models.StatusPending && style == st.free:
					style = st.pending
				case b.Status == models.StatusApproved || b.Status == models.StatusCompleted:
					style = st.booked
				}
			}
			_ = f.SetCellValue(sheetSchedule, cell, strings.Join(lines, "\n"))
			_ = f.SetCellStyle(sheetSchedule, cell, cell, style)
		}
	}

	_ = f.SetColWidth(sheetSchedule, "A", "A", 28)
	last, _ := excelize.ColumnNumberToName(days + 1)
	_ = f.SetColWidth(sheetSchedule, "B", last, 18)
	_ = f.MergeCell(sheetSchedule, "A1", last+"1")
	_ = f.SetCellStyle(sheetSchedule, "A1", "A1", st.title)
}

func writeBookingRows(f *excelize.File, snap *snapshot, st styleSet) {
	names := make(map[int64]string, len(snap.accommodations))
	for _, a := range snap.accommodations {
		names[a.ID] = a.Name
	}

	headers := []string{"ID", "Accommodation", "Check-in", "Check-out", "Slot", "Adults", "Children", "Total", "Status", "Created"}
	writeHeaders(f, sheetBookings, headers, st)

	for i, b := range snap.bookings {
		row := i + 2
		checkOut := ""
		if b.CheckOutDate != nil {
			checkOut = models.FormatDate(*b.CheckOutDate)
		}
		values := []any{
			b.ID, names[b.AccommodationID], models.FormatDate(b.CheckInDate), checkOut, string(b.TimeSlot),
			b.Adults, b.Children, b.TotalPrice, string(b.Status), b.CreatedAt.Format("2006-01-02 15:04"),
		}
		writeRow(f, sheetBookings, row, values)
	}
	_ = f.SetColWidth(sheetBookings, "B", "B", 24)
	_ = f.SetColWidth(sheetBookings, "C", "J", 14)
}

func writeEventRows(f *excelize.File, snap *snapshot, st styleSet) {
	headers := []string{"ID", "Date", "Event", "Guests", "Total", "Status", "Created"}
	writeHeaders(f, sheetEvents, headers, st)

	for i, e := range snap.events {
		values := []any{
			e.ID, models.FormatDate(e.BookingDate), string(e.EventType), e.GuestCount,
			e.TotalPrice, string(e.Status), e.CreatedAt.Format("2006-01-02 15:04"),
		}
		writeRow(f, sheetEvents, i+2, values)
	}
	_ = f.SetColWidth(sheetEvents, "B", "G", 14)
}

func writeHeaders(f *excelize.File, sheet string, headers []string, st styleSet) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, st.header)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
