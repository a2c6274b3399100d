package threshold

import "fmt"

// Classify derives the traffic-light state of a single limit entry.
//
// Band policy: price < lower is Favorable, price > upper is Unfavorable and
// everything between is Marginal. Both boundaries belong to the Marginal
// band, so a price exactly at either edge never classifies as an extreme.
// The scalar cutoff is binary: price <= cutoff is Favorable, above it
// Unfavorable. A nil or malformed entry yields Unknown rather than a wrong
// answer.
func Classify(sample PriceSample, entry LimitEntry) Classification {
	if !sample.Valid || entry == nil {
		return Unknown
	}

	switch e := entry.(type) {
	case Band:
		if !e.Valid() {
			return Unknown
		}
		if sample.Price.LessThan(e.Lower) {
			return Favorable
		}
		if sample.Price.GreaterThan(e.Upper) {
			return Unfavorable
		}
		return Marginal
	case Scalar:
		if sample.Price.LessThanOrEqual(e.Cutoff) {
			return Favorable
		}
		return Unfavorable
	default:
		return Unknown
	}
}

// Evaluate classifies every entry in the limit set and derives the
// notification events for the sample. It is a pure function: identical
// inputs always produce identical results, and any per-session or per-hour
// de-duplication is layered on by the caller.
//
// The "use now" trigger for banded devices fires at price <= lower even
// though the classification at that exact point is Marginal. The eager
// notification threshold is deliberately tighter than the three-way
// classification; callers must not "fix" this by aligning the two.
func Evaluate(sample PriceSample, set LimitSet) Result {
	result := Result{States: make(map[string]Classification, len(set.Limits))}

	for _, name := range set.Devices() {
		result.States[name] = Classify(sample, set.Limits[name])
	}

	if !sample.Valid {
		return result
	}

	if entry, ok := set.Limits[GeneralDevice]; ok {
		if scalar, ok := entry.(Scalar); ok && result.States[GeneralDevice] == Favorable {
			result.Events = append(result.Events, generalEvent(sample, scalar))
		}
	}

	for _, name := range set.Devices() {
		if name == GeneralDevice {
			continue
		}
		band, ok := set.Limits[name].(Band)
		if !ok || !band.Valid() {
			continue
		}
		if sample.Price.LessThanOrEqual(band.Lower) {
			result.Events = append(result.Events, deviceEvent(name, sample, band))
		}
	}

	return result
}

func generalEvent(sample PriceSample, scalar Scalar) NotificationEvent {
	return NotificationEvent{
		Kind:      EventGeneral,
		Device:    GeneralDevice,
		Title:     "Edullinen sähkö nyt!",
		Body:      fmt.Sprintf("Hinta on %s c/kWh — käytä laitteita!", sample.Price.StringFixed(1)),
		Price:     sample.Price,
		Threshold: scalar.Cutoff,
	}
}

func deviceEvent(name string, sample PriceSample, band Band) NotificationEvent {
	return NotificationEvent{
		Kind:      EventDevice,
		Device:    name,
		Title:     fmt.Sprintf("Voit käyttää laitetta: %s", name),
		Body:      fmt.Sprintf("Hinta %s c/kWh on alle alarajan %s c/kWh.", sample.Price.StringFixed(1), band.Lower.StringFixed(1)),
		Price:     sample.Price,
		Threshold: band.Lower,
	}
}
