package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Plan maps a Stripe price to the monthly call minutes it grants.
type Plan struct {
	Name         string `mapstructure:"name" json:"name"`
	PriceID      string `mapstructure:"priceId" json:"price_id"`
	MinutesLimit int    `mapstructure:"minutesLimit" json:"minutes_limit"`
}

type PlanCatalog struct {
	DefaultPriceID string `mapstructure:"defaultPriceId"`
	Plans          []Plan `mapstructure:"plans"`
}

const CustomPlanName = "Custom"

func DefaultPlanCatalog() PlanCatalog {
	return PlanCatalog{
		DefaultPriceID: "price_starter",
		Plans: []Plan{
			{Name: "Starter", PriceID: "price_starter", MinutesLimit: 100},
			{Name: "Professional", PriceID: "price_professional", MinutesLimit: 425},
			{Name: "Business", PriceID: "price_business", MinutesLimit: 900},
		},
	}
}

// ByPriceID returns the plan billed under priceID.
func (c PlanCatalog) ByPriceID(priceID string) (Plan, bool) {
	priceID = strings.TrimSpace(priceID)
	for _, p := range c.Plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}

// NameForLimit resolves the plan name from a stored minutes limit. Limits
// that match no plan are reported as CustomPlanName.
func (c PlanCatalog) NameForLimit(minutes int) string {
	for _, p := range c.Plans {
		if p.MinutesLimit == minutes {
			return p.Name
		}
	}
	return CustomPlanName
}

type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalog
}

// NewStaticPlanCatalogHolder wraps a fixed catalog.
func NewStaticPlanCatalogHolder(catalog PlanCatalog) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewPlanCatalogHolder(cfg Config) (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/receptionist/config")
	v.AddConfigPath("/etc/receptionist")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECEPTIONIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPlanCatalog()
		if cfg.Stripe.DefaultPriceID != "" {
			defaults.Plans[0].PriceID = cfg.Stripe.DefaultPriceID
			defaults.DefaultPriceID = cfg.Stripe.DefaultPriceID
		}
		v.SetDefault("billing.defaultPriceId", defaults.DefaultPriceID)
		v.SetDefault("billing.plans", defaults.Plans)
	}

	var catalog PlanCatalog
	if err := v.UnmarshalKey("billing", &catalog); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(catalog); err != nil {
		return nil, err
	}

	holder := NewStaticPlanCatalogHolder(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalog
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[plan-catalog] reload failed: %v", err)
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Printf("[plan-catalog] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-catalog] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalog {
	if h == nil {
		return DefaultPlanCatalog()
	}
	catalog, ok := h.current.Load().(PlanCatalog)
	if !ok {
		return DefaultPlanCatalog()
	}
	return catalog
}

func validatePlanCatalog(catalog PlanCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("billing.plans cannot be empty")
	}
	if strings.TrimSpace(catalog.DefaultPriceID) == "" {
		return errors.New("billing.defaultPriceId is required")
	}
	seen := map[string]struct{}{}
	for _, p := range catalog.Plans {
		if strings.TrimSpace(p.PriceID) == "" {
			return errors.New("billing.plans priceId is required")
		}
		if p.MinutesLimit <= 0 {
			return errors.New("billing.plans minutesLimit must be positive")
		}
		if _, dup := seen[p.PriceID]; dup {
			return errors.New("billing.plans priceId must be unique")
		}
		seen[p.PriceID] = struct{}{}
	}
	return nil
}
