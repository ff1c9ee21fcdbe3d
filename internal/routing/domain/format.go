package domain

import "fmt"

// FormatDistance renders meters under a kilometer and one-decimal
// kilometers above it.
func FormatDistance(meters int64) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

// FormatDuration renders minutes under an hour and hours plus minutes
// above it.
func FormatDuration(seconds int64) string {
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d 分鐘", minutes)
	}
	return fmt.Sprintf("%d 小時 %d 分鐘", minutes/60, minutes%60)
}
