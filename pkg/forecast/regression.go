package forecast

// Fit is an ordinary least squares line value = Slope*index + Intercept
type Fit struct {
	Slope     float64
	Intercept float64
	R2        float64 // coefficient of determination, clamped to [0,1]
	Mean      float64
	// Degenerate is set when n*Σx² - (Σx)² is zero; Slope is 0 and
	// Intercept is the mean in that case.
	Degenerate bool
}

// At evaluates the line at index x
func (f Fit) At(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// LinearFit performs simple linear regression of values over their
// indices 0..n-1.
func LinearFit(values []float64) Fit {
	n := float64(len(values))
	if n == 0 {
		return Fit{Degenerate: true}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	meanY := sumY / n

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return Fit{Intercept: meanY, Mean: meanY, Degenerate: true}
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	// R² (how well the line fits the data)
	ssTotal := 0.0
	ssRes := 0.0
	for i, y := range values {
		predicted := slope*float64(i) + intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTotal += (y - meanY) * (y - meanY)
	}

	r2 := 0.0
	if ssTotal != 0 {
		r2 = 1.0 - ssRes/ssTotal
	}
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}

	return Fit{
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		Mean:      meanY,
	}
}

// mean computes the average of values
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// lastN returns the trailing min(n, len) values
func lastN(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
