package geospatial

import (
	"github.com/apex/log"

	"violation-dashboard/models"
)

// ViewPort is the visible map rectangle requested by a dashboard client.
type ViewPort struct {
	LatMin float64 `json:"latmin" form:"latmin"`
	LonMin float64 `json:"lonmin" form:"lonmin"`
	LatMax float64 `json:"latmax" form:"latmax"`
	LonMax float64 `json:"lonmax" form:"lonmax"`
}

// Contains reports whether a point falls inside the viewport.
func (vp *ViewPort) Contains(lat, lon float64) bool {
	return lat >= vp.LatMin && lat < vp.LatMax && lon >= vp.LonMin && lon < vp.LonMax
}

// Cluster is one rendered map marker: a cell's violation count plus the
// dominant category and the strongest detection inside it.
type Cluster struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Count         int64   `json:"count"`
	TopCategory   string  `json:"top_category"`
	TopConfidence float64 `json:"top_confidence"`
}

type gridCell struct {
	lat, lon      float64 // exact coordinates of the first point
	count         int64
	categories    map[string]int
	topConfidence float64
}

// GridAggregator buckets geotagged violations into an N×M grid over the
// viewport. Steps may be negative west of Greenwich and in the southern
// hemisphere.
type GridAggregator struct {
	vp               ViewPort
	latStep, lonStep float64
	latCnt, lonCnt   int
	cells            map[int]*gridCell
}

// NewGridAggregator divides the viewport into latCnt×lonCnt cells.
func NewGridAggregator(vp *ViewPort, latCnt, lonCnt int) GridAggregator {
	return GridAggregator{
		vp:      *vp,
		latStep: (vp.LatMax - vp.LatMin) / float64(latCnt),
		lonStep: (vp.LonMax - vp.LonMin) / float64(lonCnt),
		latCnt:  latCnt,
		lonCnt:  lonCnt,
		cells:   make(map[int]*gridCell),
	}
}

// Add buckets one record. Records without coordinates or outside the viewport
// are skipped.
func (a GridAggregator) Add(r models.ViolationRecord) {
	if !r.HasLocation() {
		return
	}
	lat, lon := r.Location.Latitude, r.Location.Longitude
	latX := int((lat - a.vp.LatMin) / a.latStep)
	lonX := int((lon - a.vp.LonMin) / a.lonStep)
	if latX < 0 || lonX < 0 || latX >= a.latCnt || lonX >= a.lonCnt {
		log.Debugf("%f:%f results in %d:%d index outside of the viewport", lat, lon, latX, lonX)
		return
	}
	x := latX*a.lonCnt + lonX
	cell, ok := a.cells[x]
	if !ok {
		cell = &gridCell{lat: lat, lon: lon, categories: make(map[string]int)}
		a.cells[x] = cell
	} else {
		// Second+ points snap the marker to mid-cell.
		cell.lat = a.vp.LatMin + a.latStep*(0.5+float64(latX))
		cell.lon = a.vp.LonMin + a.lonStep*(0.5+float64(lonX))
	}
	cell.count++
	cell.categories[r.Category]++
	if r.Confidence > cell.topConfidence {
		cell.topConfidence = r.Confidence
	}
}

// Clusters returns the populated cells. Order is unspecified.
func (a GridAggregator) Clusters() []Cluster {
	out := make([]Cluster, 0, len(a.cells))
	for _, cell := range a.cells {
		out = append(out, Cluster{
			Latitude:      cell.lat,
			Longitude:     cell.lon,
			Count:         cell.count,
			TopCategory:   dominantCategory(cell.categories),
			TopConfidence: cell.topConfidence,
		})
	}
	return out
}

func dominantCategory(counts map[string]int) string {
	top, topCount := "", 0
	for category, n := range counts {
		if n > topCount || (n == topCount && category < top) {
			top, topCount = category, n
		}
	}
	return top
}
