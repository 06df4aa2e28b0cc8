package taxrules_test

import (
	"testing"

	"github.com/contador-app/contador/internal/taxrules"
)

func ptr(v float64) *float64 { return &v }

func TestBaseForRate(t *testing.T) {
	tests := []struct {
		rate float64
		want taxrules.Base
	}{
		{2.5, taxrules.BaseCompras},
		{10, taxrules.BaseHonorarios},
		{11, taxrules.BaseHonorarios},
		{4, taxrules.BaseServicios},
		{6, taxrules.BaseServicios},
	}

	for _, tt := range tests {
		if got := taxrules.BaseForRate(tt.rate); got != tt.want {
			t.Errorf("BaseForRate(%v): got %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestSuggestWithholdings(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		retefuente *float64
		reteica    *float64
		want       taxrules.Suggestion
	}{
		{
			name:       "services above threshold",
			amount:     1000000,
			retefuente: ptr(4),
			want:       taxrules.Suggestion{Retefuente: 40000},
		},
		{
			name:       "services below threshold",
			amount:     100000,
			retefuente: ptr(4),
			want:       taxrules.Suggestion{},
		},
		{
			name:       "purchases below 27 UVT",
			amount:     1000000,
			retefuente: ptr(2.5),
			want:       taxrules.Suggestion{},
		},
		{
			name:       "purchases above 27 UVT",
			amount:     2000000,
			retefuente: ptr(2.5),
			want:       taxrules.Suggestion{Retefuente: 50000},
		},
		{
			name:    "honorarios has no threshold",
			amount:  50000,
			retefuente: ptr(10),
			want:    taxrules.Suggestion{Retefuente: 5000},
		},
		{
			name:    "reteica per mil",
			amount:  1000000,
			reteica: ptr(9.66),
			want:    taxrules.Suggestion{Reteica: 9660},
		},
		{
			name:   "nil rates suggest nothing",
			amount: 1000000,
			want:   taxrules.Suggestion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := taxrules.SuggestWithholdings(tt.amount, tt.retefuente, tt.reteica)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
