package driver

// ROIMetric represents the components of an ROI calculation
type ROIMetric struct {
	GainPerSecond float64 // production added by the upgrade
	Seconds       float64 // how long the added production runs before the horizon
	TotalCost     float64
}

// Calculate computes the final ROI value: resources produced by the upgrade
// before the horizon per unit of resources spent
func (m ROIMetric) Calculate() float64 {
	if m.Seconds <= 0 {
		return 0
	}
	gain := m.GainPerSecond * m.Seconds
	if m.TotalCost <= 0 {
		return gain * 1000 // Very high ROI if free
	}
	return gain / m.TotalCost
}
