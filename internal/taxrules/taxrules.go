// Package taxrules computes Colombian withholding suggestions (retefuente
// and reteica) for classified invoice amounts.
package taxrules

import "math"

// UVTValue is the 2025 tax value unit in pesos.
const UVTValue = 49799

// Base identifies the retefuente concept category, which determines the
// minimum taxable base.
type Base string

const (
	BaseServicios  Base = "SERVICIOS"
	BaseCompras    Base = "COMPRAS"
	BaseHonorarios Base = "HONORARIOS"
)

// minBaseUVT is the minimum taxable base per concept, in UVT.
var minBaseUVT = map[Base]float64{
	BaseServicios:  4,
	BaseCompras:    27,
	BaseHonorarios: 0,
}

// Suggestion holds the proposed withholding amounts in rounded pesos.
type Suggestion struct {
	Retefuente float64 `json:"retefuente"`
	Reteica    float64 `json:"reteica"`
}

// BaseForRate infers the concept category from a configured retefuente rate.
// 2.5% is the purchases rate, 10% and up applies to professional fees, and
// everything else is treated as services.
func BaseForRate(rate float64) Base {
	switch {
	case rate == 2.5:
		return BaseCompras
	case rate >= 10:
		return BaseHonorarios
	default:
		return BaseServicios
	}
}

// Threshold returns the minimum invoice amount subject to retefuente for the
// given rate.
func Threshold(rate float64) float64 {
	return minBaseUVT[BaseForRate(rate)] * UVTValue
}

// SuggestWithholdings proposes retefuente and reteica amounts for an invoice
// total given the provider's configured rates. Nil rates produce zero for the
// corresponding withholding. Retefuente applies only when the amount reaches
// the UVT threshold for the rate's concept; reteica is a per-mil rate with no
// threshold.
func SuggestWithholdings(amount float64, retefuenteRate, reteicaRate *float64) Suggestion {
	var s Suggestion

	if retefuenteRate != nil && *retefuenteRate > 0 && amount >= Threshold(*retefuenteRate) {
		s.Retefuente = math.Round(amount * *retefuenteRate / 100)
	}

	if reteicaRate != nil && *reteicaRate > 0 {
		s.Reteica = math.Round(amount * *reteicaRate / 1000)
	}

	return s
}
