package model

import (
	"math"
	"testing"
	"time"
)

func TestEpochRoundTrip(t *testing.T) {
	instant := time.Date(2021, time.October, 2, 14, 30, 15, 250000000, time.UTC)
	e := NewEpoch(instant)
	if back := e.Time(); !back.Equal(instant) {
		t.Fatalf("round trip drifted: %v != %v", back, instant)
	}
	if got := NewEpoch(J2000); got != 0 {
		t.Fatalf("J2000 should map to epoch 0, got %v", got)
	}
}

func TestEpochArithmetic(t *testing.T) {
	e := Epoch(100)
	if got := e.Shifted(-40); got != Epoch(60) {
		t.Fatalf("Shifted(-40) = %v, want 60", got)
	}
	if got := e.Until(Epoch(160)); got != 60 {
		t.Fatalf("Until = %v, want 60", got)
	}
	if got := Epoch(160).Until(e); got != -60 {
		t.Fatalf("reverse Until = %v, want -60", got)
	}
}

func TestVec3Operations(t *testing.T) {
	a := Vec3{X: 3, Y: 4}
	if a.Norm() != 5 {
		t.Fatalf("Norm = %v, want 5", a.Norm())
	}
	if got := a.Normalized().Norm(); math.Abs(got-1) > 1e-15 {
		t.Fatalf("Normalized norm = %v", got)
	}
	x, y := Vec3{X: 1}, Vec3{Y: 1}
	if got := x.Cross(y); got != (Vec3{Z: 1}) {
		t.Fatalf("x cross y = %+v, want +z", got)
	}
	if got := x.Dot(y); got != 0 {
		t.Fatalf("orthogonal dot = %v", got)
	}
	if got := a.Sub(a); got != (Vec3{}) {
		t.Fatalf("a - a = %+v", got)
	}
}
