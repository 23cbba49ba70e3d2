// Package stats computes dashboard aggregates and regression trendlines
// from a trip set. All inputs are canonical values; conversion to the
// display unit system happens exactly once, on output.
package stats

// Point is one (x, y) observation.
type Point struct {
	X float64
	Y float64
}

// Line is a fitted regression line y = M*x + B.
type Line struct {
	M float64
	B float64
}

// At evaluates the line at x.
func (l Line) At(x float64) float64 {
	return l.M*x + l.B
}

// Linear fits an ordinary-least-squares line through the points. It
// returns false when fewer than two points are given or all x values are
// equal (zero denominator).
func Linear(points []Point) (Line, bool) {
	if len(points) < 2 {
		return Line{}, false
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Line{}, false
	}

	m := (n*sumXY - sumX*sumY) / denom
	b := (sumY - m*sumX) / n

	return Line{M: m, B: b}, true
}
