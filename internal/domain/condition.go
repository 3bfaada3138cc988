package domain

// Condition is a coarse label and icon name for a temperature, used by
// consumers that render forecasts.
type Condition struct {
	Label string `json:"condition"`
	Icon  string `json:"condition_icon"`
}

// ConditionFor classifies a temperature in °C.
func ConditionFor(temperature float64) Condition {
	switch {
	case temperature >= 30:
		return Condition{Label: "Hot", Icon: "sun"}
	case temperature >= 25:
		return Condition{Label: "Warm", Icon: "brightness-high"}
	case temperature >= 15:
		return Condition{Label: "Mild", Icon: "cloud-sun"}
	case temperature >= 5:
		return Condition{Label: "Cool", Icon: "cloud"}
	default:
		return Condition{Label: "Cold", Icon: "snow"}
	}
}
