package lantern

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertMatrix(t *testing.T, name string, got, want [6]float64) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v vs %v)", name, i, got[i], want[i], got, want)
		}
	}
}

func TestMultiplyAffineIdentity(t *testing.T) {
	m := [6]float64{2, 0, 0, 3, 10, 20}
	assertMatrix(t, "identity*m", multiplyAffine(identityTransform, m), m)
	assertMatrix(t, "m*identity", multiplyAffine(m, identityTransform), m)
}

func TestMultiplyAffineTranslationComposes(t *testing.T) {
	a := [6]float64{1, 0, 0, 1, 10, 20}
	b := [6]float64{1, 0, 0, 1, 5, -3}
	assertMatrix(t, "translate", multiplyAffine(a, b), [6]float64{1, 0, 0, 1, 15, 17})
}

func TestMultiplyAffineScaleThenTranslate(t *testing.T) {
	// Parent scales by 2, child translates by (5, 5): the child's
	// translation is scaled by the parent.
	scale := [6]float64{2, 0, 0, 2, 0, 0}
	translate := [6]float64{1, 0, 0, 1, 5, 5}
	assertMatrix(t, "scale*translate", multiplyAffine(scale, translate), [6]float64{2, 0, 0, 2, 10, 10})
}

func TestInvertAffine(t *testing.T) {
	m := [6]float64{2, 0, 0, 4, 10, -6}
	inv := invertAffine(m)
	assertMatrix(t, "m*inv", multiplyAffine(m, inv), identityTransform)
	assertMatrix(t, "inv*m", multiplyAffine(inv, m), identityTransform)
}

func TestInvertAffineSingular(t *testing.T) {
	assertMatrix(t, "singular", invertAffine([6]float64{0, 0, 0, 0, 5, 5}), identityTransform)
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name   string
		m      [6]float64
		x, y   float64
		wantX  float64
		wantY  float64
	}{
		{"identity", identityTransform, 3, 4, 3, 4},
		{"translate", [6]float64{1, 0, 0, 1, 10, 20}, 3, 4, 13, 24},
		{"scale", [6]float64{2, 0, 0, 3, 0, 0}, 3, 4, 6, 12},
		{"rotate90", [6]float64{0, 1, -1, 0, 0, 0}, 1, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := transformPoint(tt.m, tt.x, tt.y)
			if math.Abs(x-tt.wantX) > epsilon || math.Abs(y-tt.wantY) > epsilon {
				t.Errorf("transformPoint = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

// Round-tripping a point through a matrix and its inverse must be lossless
// for well-conditioned transforms.
func TestTransformPointRoundTrip(t *testing.T) {
	m := [6]float64{1.5, 0.2, -0.2, 1.5, 40, -12}
	inv := invertAffine(m)
	x, y := transformPoint(m, 7, 11)
	gx, gy := transformPoint(inv, x, y)
	if math.Abs(gx-7) > 1e-9 || math.Abs(gy-11) > 1e-9 {
		t.Errorf("round trip = (%v, %v), want (7, 11)", gx, gy)
	}
}
