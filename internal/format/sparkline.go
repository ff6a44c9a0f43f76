package format

import "sort"

type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Sparkline 依日期字串排序 (ISO 日期字典序即時間序)
func Sparkline(history map[string]float64) []Point {
	points := make([]Point, 0, len(history))
	for date, v := range history {
		points = append(points, Point{Date: date, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
