package geospatial

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"violation-dashboard/models"
)

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

type s2Cell struct {
	count         int64
	origCell      s2.CellID
	categories    map[string]int
	topConfidence float64
}

// S2Aggregator clusters geotagged violations into S2 cells. The cell level is
// derived from the viewport area so a map view renders roughly expectedCells
// markers no matter the zoom.
type S2Aggregator struct {
	level int
	cells map[s2.CellID]*s2Cell
}

func cellBaseLevel(vp *ViewPort, centerLat, centerLon float64) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerLL := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLon))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerLL.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel // Large enough level
}

// NewS2Aggregator picks the cell level for the viewport, using its center as
// the reference cell.
func NewS2Aggregator(vp *ViewPort) S2Aggregator {
	centerLat := (vp.LatMin + vp.LatMax) / 2
	centerLon := (vp.LonMin + vp.LonMax) / 2
	return S2Aggregator{
		level: cellBaseLevel(vp, centerLat, centerLon),
		cells: make(map[s2.CellID]*s2Cell),
	}
}

// Add buckets one record into its parent cell at the chosen level.
func (a *S2Aggregator) Add(r models.ViolationRecord) {
	if !r.HasLocation() {
		return
	}
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(r.Location.Latitude, r.Location.Longitude))
	parent := pc.Parent(a.level)
	cell, ok := a.cells[parent]
	if !ok {
		cell = &s2Cell{categories: make(map[string]int)}
		a.cells[parent] = cell
	}
	cell.count++
	cell.origCell = pc
	cell.categories[r.Category]++
	if r.Confidence > cell.topConfidence {
		cell.topConfidence = r.Confidence
	}
}

// Clusters returns one marker per populated cell. A cell with a single point
// keeps the point's exact coordinates; denser cells render at the cell center.
func (a *S2Aggregator) Clusters() []Cluster {
	out := make([]Cluster, 0, len(a.cells))
	for id, cell := range a.cells {
		ll := id.LatLng()
		if cell.count == 1 {
			ll = cell.origCell.LatLng()
		}
		out = append(out, Cluster{
			Latitude:      ll.Lat.Degrees(),
			Longitude:     ll.Lng.Degrees(),
			Count:         cell.count,
			TopCategory:   dominantCategory(cell.categories),
			TopConfidence: cell.topConfidence,
		})
	}
	return out
}
