// Package export writes reservation lists as spreadsheets
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/popitgo/client/internal/model"
	"github.com/popitgo/client/internal/timeutil"
)

// ReservationSheet is the worksheet name of the reservation export
const ReservationSheet = "Reservations"

// ReservationHeader lists the exported columns in order
var ReservationHeader = []string{
	"ID",
	"Activity",
	"Brand",
	"Venue",
	"Visitor",
	"Phone",
	"Email",
	"Visit Time",
	"Status",
	"Platform",
	"Reservation URL",
	"Notes",
	"Created",
}

var reservationColumnWidths = []float64{
	8,  // ID
	28, // Activity
	18, // Brand
	20, // Venue
	16, // Visitor
	16, // Phone
	26, // Email
	18, // Visit Time
	12, // Status
	16, // Platform
	36, // Reservation URL
	36, // Notes
	18, // Created
}

// WriteReservations writes visits as an xlsx workbook to w. Times are
// rendered in loc; nil means UTC.
func WriteReservations(w io.Writer, visits []model.VisitReservation, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ReservationSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFE9D6"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range ReservationHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(ReservationSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(ReservationSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(ReservationSheet, col, col, reservationColumnWidths[i]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, v := range visits {
		row := i + 2
		for col, value := range reservationRow(v, loc) {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(ReservationSheet, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(ReservationSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func reservationRow(v model.VisitReservation, loc *time.Location) []string {
	return []string{
		v.ID,
		v.ActivityTitle,
		v.BrandName,
		v.VenueName,
		v.VisitorName,
		v.VisitorPhone,
		v.VisitorEmail,
		formatTime(v.VisitDatetime, loc),
		string(v.Status),
		platformLabel(v.ReservationPlatform),
		deref(v.ReservationURL),
		deref(v.Notes),
		formatTime(v.CreatedAt, loc),
	}
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return timeutil.FormatDateTime(t.In(loc))
}

func platformLabel(p *string) string {
	if p == nil || *p == "" {
		return ""
	}
	return model.PlatformLabel(*p)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
