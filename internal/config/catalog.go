package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"bikeshop-backend/internal/shared"
)

// Catalog is the server-side price list used to total a booking.
type Catalog struct {
	Currency            string          `yaml:"currency"`
	MechanicVisitCharge decimal.Decimal `yaml:"mechanic_visit_charge"`
	DeliveryCharge      decimal.Decimal `yaml:"delivery_charge"`
	Services            []ServicePrice  `yaml:"services"`
	Bicycles            []BicycleRate   `yaml:"bicycles"`
}

// ServicePrice is a flat-priced repair service.
type ServicePrice struct {
	Code  string          `yaml:"code"`
	Name  string          `yaml:"name"`
	Price decimal.Decimal `yaml:"price"`
	Tag   string          `yaml:"tag"`
}

// BicycleRate is a rentable bicycle billed per hour.
type BicycleRate struct {
	Code       string          `yaml:"code"`
	Name       string          `yaml:"name"`
	HourlyRate decimal.Decimal `yaml:"hourly_rate"`
	Tag        string          `yaml:"tag"`
}

// LoadCatalog reads and validates the YAML catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document and fills default tags.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) normalize() error {
	seen := make(map[string]bool)

	for i := range c.Services {
		s := &c.Services[i]
		if s.Code == "" || seen[s.Code] {
			return fmt.Errorf("catalog: service code %q is empty or duplicated", s.Code)
		}
		if s.Price.IsNegative() {
			return fmt.Errorf("catalog: service %q has a negative price", s.Code)
		}
		if s.Tag == "" {
			s.Tag = shared.TagRepairServices
		}
		seen[s.Code] = true
	}

	for i := range c.Bicycles {
		b := &c.Bicycles[i]
		if b.Code == "" || seen[b.Code] {
			return fmt.Errorf("catalog: bicycle code %q is empty or duplicated", b.Code)
		}
		if !b.HourlyRate.IsPositive() {
			return fmt.Errorf("catalog: bicycle %q needs a positive hourly rate", b.Code)
		}
		if b.Tag == "" {
			b.Tag = shared.TagRentalBicycles
		}
		seen[b.Code] = true
	}

	if c.MechanicVisitCharge.IsNegative() || c.DeliveryCharge.IsNegative() {
		return fmt.Errorf("catalog: surcharges cannot be negative")
	}

	return nil
}

// Service looks a repair service up by code.
func (c *Catalog) Service(code string) (ServicePrice, bool) {
	for _, s := range c.Services {
		if s.Code == code {
			return s, true
		}
	}
	return ServicePrice{}, false
}

// Bicycle looks a rentable bicycle up by code.
func (c *Catalog) Bicycle(code string) (BicycleRate, bool) {
	for _, b := range c.Bicycles {
		if b.Code == code {
			return b, true
		}
	}
	return BicycleRate{}, false
}
