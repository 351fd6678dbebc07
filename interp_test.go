package jurassic

import "testing"

func TestLocateF64(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	cases := []struct {
		x    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0},
		{2.5, 2},
		{4, 3},
		{10, 3},
	}
	for _, c := range cases {
		if got := locateF64(xs, c.x); got != c.want {
			t.Errorf("locateF64(%v, %g) = %d, want %d", xs, c.x, got, c.want)
		}
	}
}

func TestLin(t *testing.T) {
	if got := lin(0, 0, 10, 100, 5); got != 50 {
		t.Errorf("lin(0,0,10,100,5) = %g, want 50", got)
	}
	if got := lin(5, 2, 5, 9, 5); got != 2 {
		t.Errorf("lin with x0==x1 should return y0, got %g", got)
	}
}
