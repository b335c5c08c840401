package survey

import (
	"fmt"
	"math"
	"time"
)

// FormatRoute renders one fixed-width line per waypoint:
//
//	TAG            DD:MM.MMMN DDD:MM.MMME CCC.C HH:MM:SS DDDDDD.D
//
// with course in degrees, leg duration, and leg distance in metres. A blank
// line separates the waypoints of consecutive targets.
func FormatRoute(wps []WaypointData) []string {
	out := make([]string, 0, len(wps))
	for i, w := range wps {
		if i > 0 && w.Target != wps[i-1].Target {
			out = append(out, "")
		}
		out = append(out, FormatWaypoint(w))
	}
	return out
}

// FormatWaypoint renders a single waypoint line.
func FormatWaypoint(w WaypointData) string {
	return fmt.Sprintf("%-14s %s %s %05.1f %s %8.1f",
		w.Tag,
		formatCoord(w.Position.Lat, 2, 'N', 'S'),
		formatCoord(w.Position.Lon, 3, 'E', 'W'),
		w.Course,
		formatDuration(w.Duration),
		w.Distance,
	)
}

// formatCoord renders degrees as D:MM.MMM plus hemisphere, degrees padded to
// width digits.
func formatCoord(deg float64, width int, pos, neg byte) string {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return fmt.Sprintf("%*s", width+8, "NaN")
	}
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}
	// Round on thousandths of a minute first so 59.9996' carries into the degree.
	thousandths := math.Round(deg * 60 * 1000)
	whole := math.Floor(thousandths / 60000)
	minutes := (thousandths - whole*60000) / 1000
	return fmt.Sprintf("%0*d:%06.3f%c", width, int(whole), minutes, hemi)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(math.Round(d.Seconds()))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
