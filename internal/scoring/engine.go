package scoring

import (
	"fmt"
	"math"

	"github.com/agrisense-io/crop-advisor/internal/models"
)

// Criterion weights. pH and temperature dominate because they are the
// hardest soil properties to amend; nutrient levels (N/P/K) can be
// corrected with fertilizer and weigh less.
const (
	weightPH          = 1.5
	weightTemperature = 1.5
	weightHumidity    = 1.0
	weightEC          = 1.0
	weightNutrient    = 0.8
)

// CriterionDetail records how one soil criterion scored against the crop's
// ideal range. Score is the weighted contribution (raw score x weight).
type CriterionDetail struct {
	Score  float64 `json:"score"`
	Ideal  string  `json:"ideal"`
	Actual string  `json:"actual"`
}

// Compatibility is the result of scoring one soil analysis against one
// crop profile.
type Compatibility struct {
	Score   int                        `json:"score"`
	Details map[string]CriterionDetail `json:"details"`
	Message string                     `json:"message"`
}

// Score computes the 0-100 compatibility of a soil analysis with a crop's
// ideal ranges. Pure: no side effects, no error conditions. A criterion is
// evaluated only when the crop defines both bounds and the analysis carries
// a value; anything absent is omitted from the output and from the weight
// denominator, degrading the score rather than failing.
func Score(crop *models.CropProfile, analysis *models.SoilAnalysis) Compatibility {
	var weightedSum, totalWeight float64
	details := make(map[string]CriterionDetail)

	evaluate := func(name string, value, min, max *float64, weight float64, unit string) {
		if min == nil || max == nil || value == nil {
			return
		}
		contribution := criterionScore(*value, *min, *max) * weight
		weightedSum += contribution
		totalWeight += weight
		details[name] = CriterionDetail{
			Score:  contribution,
			Ideal:  fmt.Sprintf("%g-%g%s", *min, *max, unit),
			Actual: fmt.Sprintf("%g%s", *value, unit),
		}
	}

	evaluate("ph", analysis.PH, crop.PHMin, crop.PHMax, weightPH, "")
	evaluate("humidity", analysis.Humidity, crop.HumidityMin, crop.HumidityMax, weightHumidity, "%")
	evaluate("temperature", analysis.Temperature, crop.TemperatureMin, crop.TemperatureMax, weightTemperature, "°C")
	evaluate("conductivity", analysis.Conductivity, crop.ECMin, crop.ECMax, weightEC, " dS/m")
	evaluate("nitrogen", analysis.Nitrogen, crop.NitrogenMin, crop.NitrogenMax, weightNutrient, " ppm")
	evaluate("phosphorus", analysis.Phosphorus, crop.PhosphorusMin, crop.PhosphorusMax, weightNutrient, " ppm")
	evaluate("potassium", analysis.Potassium, crop.PotassiumMin, crop.PotassiumMax, weightNutrient, " ppm")

	score := 0
	if totalWeight > 0 {
		score = int(math.Round(weightedSum / totalWeight * 100))
	}

	return Compatibility{
		Score:   score,
		Details: details,
		Message: message(score, crop.Name),
	}
}

// criterionScore returns the raw per-criterion score in [0,1]. Inside the
// ideal range the score is 1; outside, it degrades linearly with the
// deviation relative to the violated bound and saturates at 0. A value 50%
// below the minimum scores ~0.5; values arbitrarily far out approach 0.
func criterionScore(value, min, max float64) float64 {
	if value >= min && value <= max {
		return 1
	}
	var deviation float64
	if value < min {
		deviation = (value - min) / min
	} else {
		deviation = (value - max) / max
	}
	return math.Max(0, 1-math.Abs(deviation))
}

// message maps a final score to a qualitative recommendation sentence.
func message(score int, cropName string) string {
	switch {
	case score >= 80:
		return fmt.Sprintf("Excellent compatibility with %s. Your soil is ideal for this crop.", cropName)
	case score >= 60:
		return fmt.Sprintf("Good compatibility with %s. A few minor adjustments could improve results.", cropName)
	case score >= 40:
		return fmt.Sprintf("Moderate compatibility with %s. Improvements are needed for good yields.", cropName)
	default:
		return fmt.Sprintf("Poor compatibility with %s. Major soil modification is needed.", cropName)
	}
}
