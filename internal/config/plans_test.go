package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCatalogLookups(t *testing.T) {
	catalog := DefaultPlanCatalog()

	plan, ok := catalog.ByPriceID("price_professional")
	assert.True(t, ok)
	assert.Equal(t, 425, plan.MinutesLimit)

	_, ok = catalog.ByPriceID("price_unknown")
	assert.False(t, ok)

	assert.Equal(t, "Business", catalog.NameForLimit(900))
	assert.Equal(t, CustomPlanName, catalog.NameForLimit(1234))
}

func TestValidatePlanCatalog(t *testing.T) {
	assert.NoError(t, validatePlanCatalog(DefaultPlanCatalog()))
	assert.Error(t, validatePlanCatalog(PlanCatalog{DefaultPriceID: "p"}))

	dup := PlanCatalog{
		DefaultPriceID: "p",
		Plans: []Plan{
			{Name: "A", PriceID: "p", MinutesLimit: 1},
			{Name: "B", PriceID: "p", MinutesLimit: 2},
		},
	}
	assert.Error(t, validatePlanCatalog(dup))
}

func TestPlanCatalogHolderNilSafe(t *testing.T) {
	var holder *PlanCatalogHolder
	assert.Equal(t, DefaultPlanCatalog(), holder.Get())
}
