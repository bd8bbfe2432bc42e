package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxTrackingMarks = 16
	// TrackingMarkStride is 8 floats: uv(2), radius, cut radius, smoothness,
	// cut height, padding(2).
	TrackingMarkStride = 8 * 4
)

// TrackingMark is a planar decal request already converted into UV space.
type TrackingMark struct {
	UV         mgl32.Vec2
	Radius     float32
	CutRadius  float32
	Smoothness float32
	CutHeight  float32
}

// IsZero reports the free-slot encoding: no radius and no cut radius.
func (m TrackingMark) IsZero() bool {
	return m.Radius == 0 && m.CutRadius == 0
}

type trackingSlot struct {
	occupied bool
	mark     TrackingMark
}

// TrackingTable is a fixed set of mark slots consumed once per blit.
type TrackingTable struct {
	slots [MaxTrackingMarks]trackingSlot
}

// Request stores the mark in the first empty slot. It returns false when
// every slot is taken or when the mark carries no radius at all.
func (t *TrackingTable) Request(m TrackingMark) bool {
	if m.IsZero() {
		return false
	}
	for i := range t.slots {
		if t.slots[i].occupied {
			continue
		}
		t.slots[i] = trackingSlot{occupied: true, mark: m}
		return true
	}
	return false
}

func (t *TrackingTable) Occupied() bool {
	for i := range t.slots {
		if t.slots[i].occupied {
			return true
		}
	}
	return false
}

func (t *TrackingTable) Count() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].occupied {
			n++
		}
	}
	return n
}

// Slot returns the mark at index i and whether the slot is occupied.
func (t *TrackingTable) Slot(i int) (TrackingMark, bool) {
	if i < 0 || i >= MaxTrackingMarks {
		return TrackingMark{}, false
	}
	return t.slots[i].mark, t.slots[i].occupied
}

func (t *TrackingTable) Clear() {
	t.slots = [MaxTrackingMarks]trackingSlot{}
}

// Marshal packs all 16 slots; empty slots are written as zeros.
func (t *TrackingTable) Marshal() []byte {
	buf := make([]byte, MaxTrackingMarks*TrackingMarkStride)
	for i, s := range t.slots {
		if !s.occupied {
			continue
		}
		off := i * TrackingMarkStride
		vals := [6]float32{s.mark.UV[0], s.mark.UV[1], s.mark.Radius, s.mark.CutRadius, s.mark.Smoothness, s.mark.CutHeight}
		for j, v := range vals {
			binary.LittleEndian.PutUint32(buf[off+j*4:], math.Float32bits(v))
		}
	}
	return buf
}
