package analytics

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"gasdash-backend/internal/models"
)

var csvHeader = []string{
	"id", "type", "startDate", "endDate",
	"totalDeliveries", "completedDeliveries", "cancelledDeliveries",
	"totalRevenue", "averageDeliveryTime", "topProducts", "createdAt",
}

// WriteCSV writes one row per report for the Reports page download
func WriteCSV(w io.Writer, reports []models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range reports {
		names := make([]string, len(r.TopProducts))
		for i, p := range r.TopProducts {
			names[i] = p.Name
		}
		row := []string{
			r.ID,
			string(r.Type),
			r.StartDate.UTC().Format(time.RFC3339),
			r.EndDate.UTC().Format(time.RFC3339),
			strconv.Itoa(r.TotalDeliveries),
			strconv.Itoa(r.CompletedDeliveries),
			strconv.Itoa(r.CancelledDeliveries),
			strconv.FormatFloat(r.TotalRevenue, 'f', 2, 64),
			strconv.FormatFloat(r.AverageDeliveryTime, 'f', 1, 64),
			strings.Join(names, "; "),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
