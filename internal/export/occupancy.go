package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"hotelbook/internal/booking"
	"hotelbook/internal/models"
)

const occupancySheet = "Occupancy"

// OccupancyRow is one resource line of the report.
type OccupancyRow struct {
	ResourceID   string
	Name         string
	Kind         string
	Reservations int
	// BookedUnits is nights for rooms and hours for tables.
	BookedUnits float64
	Capacity    float64
	Occupancy   float64
	Revenue     float64
}

// BuildOccupancy aggregates reservations per resource over [from, to).
// Reservations are clipped to the window; cancelled ones are ignored.
func BuildOccupancy(resources []models.Resource, reservations []*models.Reservation, from, to time.Time) []OccupancyRow {
	byID := make(map[string]*OccupancyRow, len(resources))
	rates := make(map[string]float64, len(resources))
	rows := make([]*OccupancyRow, 0, len(resources))

	for _, res := range resources {
		row := &OccupancyRow{ResourceID: res.ID, Name: res.Name, Kind: res.Kind}
		if res.Kind == models.KindRoom {
			row.Capacity = float64(booking.Nights(from, to))
		} else {
			row.Capacity = to.Sub(from).Hours()
		}
		byID[res.ID] = row
		rates[res.ID] = res.BasePrice
		rows = append(rows, row)
	}

	for _, r := range reservations {
		if r == nil || r.Status == models.ReservationCancelled {
			continue
		}
		row, ok := byID[r.ResourceID]
		if !ok {
			continue
		}
		start, end := clip(r.Start, r.End, from, to)
		if !end.After(start) {
			continue
		}

		row.Reservations++
		if row.Kind == models.KindRoom {
			price := booking.ComputePrice(rates[r.ResourceID], start, end)
			row.BookedUnits += float64(price.Nights)
			row.Revenue += price.Total
		} else {
			row.BookedUnits += end.Sub(start).Hours()
			row.Revenue += r.TotalPrice
		}
	}

	out := make([]OccupancyRow, 0, len(rows))
	for _, row := range rows {
		if row.Capacity > 0 {
			row.Occupancy = row.BookedUnits / row.Capacity * 100
			if row.Occupancy > 100 {
				row.Occupancy = 100
			}
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func clip(start, end, from, to time.Time) (time.Time, time.Time) {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return start, end
}

// OccupancyReport renders the aggregated rows into a workbook.
func OccupancyReport(
	ctx context.Context,
	resources []models.Resource,
	reservations []*models.Reservation,
	from, to time.Time,
) (*excelize.File, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("report window is empty")
	}
	rows := BuildOccupancy(resources, reservations, from, to)

	f := excelize.NewFile()
	index, err := f.NewSheet(occupancySheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(occupancySheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format("2006-01-02"), to.Format("2006-01-02")))
	_ = f.MergeCell(occupancySheet, "A1", "G1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(occupancySheet, "A1", "A1", titleStyle)

	headers := []string{"Resource", "Kind", "Reservations", "Booked", "Available", "Occupancy %", "Revenue"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(occupancySheet, cell, h)
		_ = f.SetCellStyle(occupancySheet, cell, cell, headerStyle)
	}

	busyStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return nil, err
		}
		r := i + 3
		values := []interface{}{
			row.Name, row.Kind, row.Reservations, row.BookedUnits, row.Capacity,
			round2(row.Occupancy), round2(row.Revenue),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			_ = f.SetCellValue(occupancySheet, cell, v)
		}
		if row.Occupancy >= 80 {
			cell, _ := excelize.CoordinatesToCellName(6, r)
			_ = f.SetCellStyle(occupancySheet, cell, cell, busyStyle)
		}
	}

	_ = f.SetColWidth(occupancySheet, "A", "A", 25)
	_ = f.SetColWidth(occupancySheet, "B", "G", 15)
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// WriteOccupancyReport streams the workbook to w.
func WriteOccupancyReport(
	ctx context.Context,
	w io.Writer,
	resources []models.Resource,
	reservations []*models.Reservation,
	from, to time.Time,
) error {
	f, err := OccupancyReport(ctx, resources, reservations, from, to)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// FileName is the suggested download name for a report window.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("occupancy_%s_to_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
