package sensor

// QualityScorer turns humidity and gas resistance into an air quality
// index that is 100 at the baselines. HumidityWeighting (0..1) is the
// humidity share of that 100; the gas share is the rest.
//
// Humidity scores highest at HumidityBaseline and falls off linearly in
// both directions. Gas resistance at or below GasBaseline earns the full
// gas share; above it the share scales with gas/GasBaseline and is not
// capped, so cleaner air than the baseline scores above 100. A GasBaseline
// of zero or less always earns the full gas share.
type QualityScorer struct {
	HumidityBaseline  float64
	HumidityWeighting float64
	GasBaseline       float64
}

// Score computes the index for one sample.
func (q QualityScorer) Score(humidity, gas float64) float64 {
	humShare := q.HumidityWeighting * 100
	gasShare := 100 - humShare

	var humScore float64
	if offset := humidity - q.HumidityBaseline; offset > 0 {
		humScore = (100 - q.HumidityBaseline - offset) / (100 - q.HumidityBaseline) * humShare
	} else {
		humScore = (q.HumidityBaseline + offset) / q.HumidityBaseline * humShare
	}

	gasScore := gasShare
	if q.GasBaseline > 0 && gas-q.GasBaseline > 0 {
		gasScore = gas / q.GasBaseline * gasShare
	}

	return humScore + gasScore
}
