package billing

import (
	"testing"

	"github.com/ManuelReschke/PayFox/app/models"
)

func TestIsKnownProduct(t *testing.T) {
	for _, id := range []string{ProductBasic, ProductPro, ProductMax} {
		if !IsKnownProduct(id) {
			t.Fatalf("expected %q to be whitelisted", id)
		}
	}
	for _, id := range []string{"", "pdt_unknown", "basic"} {
		if IsKnownProduct(id) {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestPlanTypeForProduct(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: ProductBasic, want: models.PlanTypeBasic},
		{in: ProductPro, want: models.PlanTypePro},
		{in: ProductMax, want: models.PlanTypeMax},
		// Unknown products fall open to the basic tier.
		{in: "pdt_not_mapped", want: models.PlanTypeBasic},
	}

	for _, tt := range tests {
		if got := PlanTypeForProduct(tt.in); got != tt.want {
			t.Fatalf("PlanTypeForProduct(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
