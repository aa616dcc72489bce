// Package analytics derives delivery metrics for a time window. Analytics
// computes them on demand; Reports persists them as immutable snapshots.
package analytics

import (
	"sort"

	"gasdash-backend/internal/models"
)

const DefaultTopProducts = 5

// Summary is the single-pass reduction of a delivery set
type Summary struct {
	TotalDeliveries      int                  `json:"totalDeliveries"`
	CompletedDeliveries  int                  `json:"completedDeliveries"`
	CancelledDeliveries  int                  `json:"cancelledDeliveries"`
	TotalRevenue         float64              `json:"totalRevenue"`
	AverageDeliveryTime  float64              `json:"averageDeliveryTime"` // Minutes
	CustomerSatisfaction float64              `json:"customerSatisfaction"`
	TopProducts          []models.ProductStat `json:"popularProducts"`
	DailyTrends          []models.TrendPoint  `json:"deliveryTrends"`
}

// Summarize reduces deliveries in one pass. Averages over an empty
// eligible set are zero.
func Summarize(deliveries []models.Delivery, topN int) Summary {
	var (
		s          Summary
		timed      int
		minutes    float64
		rated      int
		ratingSum  float64
		products   = map[string]*models.ProductStat{}
		trendIndex = map[string]*models.TrendPoint{}
	)

	for _, d := range deliveries {
		s.TotalDeliveries++
		s.TotalRevenue += d.TotalAmount

		switch d.Status {
		case models.DeliveryStatusCompleted:
			s.CompletedDeliveries++
		case models.DeliveryStatusCancelled:
			s.CancelledDeliveries++
		}

		if d.CompletedAt != nil {
			if start := d.StartedAt(); !start.IsZero() {
				minutes += d.CompletedAt.Sub(start).Minutes()
				timed++
			}
		}

		if d.Rating != nil {
			ratingSum += *d.Rating
			rated++
		}

		for _, item := range d.Products {
			p, ok := products[item.Name]
			if !ok {
				p = &models.ProductStat{Name: item.Name}
				products[item.Name] = p
			}
			p.Quantity += item.Quantity
			p.Revenue += item.Revenue()
		}

		day := d.CreatedAt.UTC().Format("2006-01-02")
		tp, ok := trendIndex[day]
		if !ok {
			tp = &models.TrendPoint{Date: day}
			trendIndex[day] = tp
		}
		tp.Deliveries++
		tp.Revenue += d.TotalAmount
	}

	if timed > 0 {
		s.AverageDeliveryTime = minutes / float64(timed)
	}
	if rated > 0 {
		s.CustomerSatisfaction = ratingSum / float64(rated)
	}

	s.TopProducts = make([]models.ProductStat, 0, len(products))
	for _, p := range products {
		s.TopProducts = append(s.TopProducts, *p)
	}
	sort.Slice(s.TopProducts, func(i, j int) bool {
		a, b := s.TopProducts[i], s.TopProducts[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Name < b.Name
	})
	if topN > 0 && len(s.TopProducts) > topN {
		s.TopProducts = s.TopProducts[:topN]
	}

	s.DailyTrends = make([]models.TrendPoint, 0, len(trendIndex))
	for _, tp := range trendIndex {
		s.DailyTrends = append(s.DailyTrends, *tp)
	}
	sort.Slice(s.DailyTrends, func(i, j int) bool {
		return s.DailyTrends[i].Date < s.DailyTrends[j].Date
	})
	return s
}
