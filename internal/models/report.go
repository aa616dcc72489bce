package models

import "time"

type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
)

const ReportsCollection = "reports"

// ProductStat aggregates one product across every line item in a window
type ProductStat struct {
	Name     string  `json:"name" firestore:"name"`
	Quantity int     `json:"quantity" firestore:"quantity"`
	Revenue  float64 `json:"revenue" firestore:"revenue"`
}

// TrendPoint is one day bucket of the delivery trend series
type TrendPoint struct {
	Date       string  `json:"date" firestore:"date"` // YYYY-MM-DD
	Deliveries int     `json:"deliveries" firestore:"deliveries"`
	Revenue    float64 `json:"revenue" firestore:"revenue"`
}

// Report is a write-once snapshot of delivery metrics for a window
type Report struct {
	ID                  string        `json:"id" firestore:"-"`
	Type                ReportType    `json:"type" firestore:"type"`
	StartDate           time.Time     `json:"startDate" firestore:"startDate"`
	EndDate             time.Time     `json:"endDate" firestore:"endDate"`
	TotalDeliveries     int           `json:"totalDeliveries" firestore:"totalDeliveries"`
	CompletedDeliveries int           `json:"completedDeliveries" firestore:"completedDeliveries"`
	CancelledDeliveries int           `json:"cancelledDeliveries" firestore:"cancelledDeliveries"`
	TotalRevenue        float64       `json:"totalRevenue" firestore:"totalRevenue"`
	AverageDeliveryTime float64       `json:"averageDeliveryTime" firestore:"averageDeliveryTime"` // Minutes
	TopProducts         []ProductStat `json:"topProducts" firestore:"topProducts"`
	CreatedAt           time.Time     `json:"createdAt" firestore:"createdAt"`
}

func (r Report) DocID() string { return r.ID }

func (r *Report) SetDocID(id string) { r.ID = id }

func (r *Report) Stamp(now time.Time) { r.CreatedAt = now }
