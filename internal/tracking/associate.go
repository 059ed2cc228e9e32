package tracking

import "sort"

const (
	// Detections overlapping an existing track at least this much keep its ID.
	associationIoUThreshold = 0.3
	// Tracks unmatched for this many consecutive frames are dropped.
	trackMaxAge = 30
)

type track struct {
	id      int
	box     Rect
	classID int
	missed  int
}

// associator assigns stable IDs to raw per-frame detections by greedy IoU
// matching against the previous frame's tracks.
type associator struct {
	tracks []track
	nextID int
}

func newAssociator() *associator {
	return &associator{nextID: 1}
}

// Update matches detections against live tracks and returns the frame's
// entities with assigned IDs.
func (a *associator) Update(detections []Detection) []Entity {
	type pair struct {
		trackIdx     int
		detectionIdx int
		iou          float64
	}

	pairs := make([]pair, 0, len(a.tracks)*len(detections))
	for ti, tr := range a.tracks {
		for di, det := range detections {
			if det.ClassID != tr.classID {
				continue
			}
			if iou := tr.box.IoU(det.Box); iou >= associationIoUThreshold {
				pairs = append(pairs, pair{trackIdx: ti, detectionIdx: di, iou: iou})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].iou > pairs[j].iou })

	matchedTracks := make(map[int]bool, len(a.tracks))
	matchedDetections := make(map[int]bool, len(detections))
	entities := make([]Entity, 0, len(detections))

	for _, p := range pairs {
		if matchedTracks[p.trackIdx] || matchedDetections[p.detectionIdx] {
			continue
		}
		matchedTracks[p.trackIdx] = true
		matchedDetections[p.detectionIdx] = true

		a.tracks[p.trackIdx].box = detections[p.detectionIdx].Box
		a.tracks[p.trackIdx].missed = 0
		entities = append(entities, Entity{
			ID:      a.tracks[p.trackIdx].id,
			Box:     detections[p.detectionIdx].Box,
			ClassID: a.tracks[p.trackIdx].classID,
		})
	}

	for di, det := range detections {
		if matchedDetections[di] {
			continue
		}
		tr := track{id: a.nextID, box: det.Box, classID: det.ClassID}
		a.nextID++
		a.tracks = append(a.tracks, tr)
		entities = append(entities, Entity{ID: tr.id, Box: tr.box, ClassID: tr.classID})
	}

	alive := a.tracks[:0]
	for ti, tr := range a.tracks {
		if !matchedTracks[ti] && !isNew(tr, entities) {
			tr.missed++
		}
		if tr.missed <= trackMaxAge {
			alive = append(alive, tr)
		}
	}
	a.tracks = alive

	return entities
}

func isNew(tr track, entities []Entity) bool {
	for _, e := range entities {
		if e.ID == tr.id {
			return true
		}
	}
	return false
}

// Detection is a raw, unassociated detector output for one frame.
type Detection struct {
	Box        Rect
	ClassID    int
	Confidence float64
}
