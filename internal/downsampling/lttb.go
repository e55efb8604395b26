package downsampling

import (
	"math"

	"github.com/soltixdb/soltix-transform/internal/series"
)

// LTTB selects threshold points with the Largest-Triangle-Three-Buckets
// algorithm. Input must be time-ascending; the first and last points are kept.
func LTTB(data []series.Point, threshold int) []series.Point {
	if len(data) <= threshold || threshold <= 0 {
		return data
	}
	if threshold <= 2 {
		if threshold == 1 {
			return []series.Point{data[len(data)-1]}
		}
		return []series.Point{data[0], data[len(data)-1]}
	}

	sampled := make([]series.Point, 0, threshold)
	sampled = append(sampled, data[0])

	// Bucket size excluding first and last points
	bucketSize := float64(len(data)-2) / float64(threshold-2)

	// Index of the point selected in the previous bucket
	a := 0

	for i := 0; i < threshold-2; i++ {
		// Average of the next bucket
		avgRangeStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		avgRangeEnd := int(math.Floor(float64(i+2)*bucketSize)) + 1
		if avgRangeEnd >= len(data) {
			avgRangeEnd = len(data)
		}

		avgX, avgY := 0.0, 0.0
		avgRangeLength := avgRangeEnd - avgRangeStart
		for j := avgRangeStart; j < avgRangeEnd; j++ {
			avgX += float64(data[j].Timestamp)
			avgY += data[j].Value
		}
		avgX /= float64(avgRangeLength)
		avgY /= float64(avgRangeLength)

		rangeOffs := int(math.Floor(float64(i)*bucketSize)) + 1
		rangeTo := int(math.Floor(float64(i+1)*bucketSize)) + 1

		pointAX := float64(data[a].Timestamp)
		pointAY := data[a].Value

		maxArea := -1.0
		maxAreaPoint := rangeOffs
		for j := rangeOffs; j < rangeTo; j++ {
			area := math.Abs((pointAX-avgX)*(data[j].Value-pointAY)-
				(pointAX-float64(data[j].Timestamp))*(avgY-pointAY)) * 0.5
			if area > maxArea {
				maxArea = area
				maxAreaPoint = j
			}
		}

		sampled = append(sampled, data[maxAreaPoint])
		a = maxAreaPoint
	}

	return append(sampled, data[len(data)-1])
}
