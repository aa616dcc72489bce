package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/analytics"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
	"gasdash-backend/pkg/utils"
)

type GenerateReportRequest struct {
	Date string `json:"date,omitempty"` // YYYY-MM-DD; today when empty
}

// GetAnalytics returns the dashboard summary for ?range=day|week|month
func GetAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := ws.Analytics.SetRange(r.Context(), rng); err != nil {
			utils.RespondJSON(w, utils.StatusFor(err), ws.Analytics.State())
			return
		}
		utils.RespondJSON(w, http.StatusOK, ws.Analytics.State())
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}

func parseReportType(s string) (models.ReportType, bool) {
	switch t := models.ReportType(s); t {
	case models.ReportDaily, models.ReportWeekly, models.ReportMonthly:
		return t, true
	}
	return "", false
}

// ListReports returns stored reports. With ?type=&start=&end= (YYYY-MM-DD)
// it lists the reports of that type inside the window.
func ListReports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		if q.Get("type") == "" {
			utils.RespondJSON(w, http.StatusOK, ws.Reports.State())
			return
		}

		typ, valid := parseReportType(q.Get("type"))
		if !valid {
			utils.RespondError(w, http.StatusBadRequest, "Type must be 'daily', 'weekly', or 'monthly'")
			return
		}
		start, err := time.Parse("2006-01-02", q.Get("start"))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse("2006-01-02", q.Get("end"))
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
		// end is inclusive of the whole day
		end = end.Add(24*time.Hour - time.Nanosecond)

		if err := ws.Reports.FetchWindow(r.Context(), typ, start, end); err != nil {
			utils.RespondJSON(w, utils.StatusFor(err), ws.Reports.State())
			return
		}
		utils.RespondJSON(w, http.StatusOK, ws.Reports.State())
	}
}

// GenerateReport computes and stores a daily, weekly or monthly snapshot
func GenerateReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		typ, valid := parseReportType(chi.URLParam(r, "type"))
		if !valid {
			utils.RespondError(w, http.StatusNotFound, "Unknown report type")
			return
		}
		var req GenerateReportRequest
		if r.ContentLength > 0 && !decode(w, r, &req) {
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("📊 REQUEST: generate %s report for %s", typ, date.Format("2006-01-02"))
		var report models.Report
		switch typ {
		case models.ReportDaily:
			report, err = ws.Reports.GenerateDaily(r.Context(), date)
		case models.ReportWeekly:
			report, err = ws.Reports.GenerateWeekly(r.Context(), date)
		default:
			report, err = ws.Reports.GenerateMonthly(r.Context(), date)
		}
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("✅ Report %s: %d deliveries, revenue %.2f", report.ID, report.TotalDeliveries, report.TotalRevenue)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		utils.RespondJSON(w, http.StatusCreated, report)
	}
}

// ExportReports downloads the listed reports as CSV
func ExportReports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		if p := ws.Principal(); p == nil || !p.HasRole(models.RoleAdmin, models.RoleManager) {
			utils.RespondErr(w, resource.ErrForbidden)
			return
		}
		filename := fmt.Sprintf("reports-%s.csv", time.Now().UTC().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if err := analytics.WriteCSV(w, ws.Reports.State().Data); err != nil {
			log.Printf("❌ CSV export failed: %v", err)
		}
	}
}
