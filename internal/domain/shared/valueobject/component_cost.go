package valueobject

// Component identifies one slice of a landed cost basis.
type Component string

const (
	ComponentManufacturing  Component = "MANUFACTURING"
	ComponentFreight        Component = "FREIGHT"
	ComponentDuty           Component = "DUTY"
	ComponentMfgAccessories Component = "MFG_ACCESSORIES"
)

// Components returns all cost components in their canonical order.
func Components() []Component {
	return []Component{
		ComponentManufacturing,
		ComponentFreight,
		ComponentDuty,
		ComponentMfgAccessories,
	}
}

// ComponentCost is a landed cost broken down by component, in cents.
// It is a value: all operations return new instances.
type ComponentCost struct {
	ManufacturingCents  int64 `json:"manufacturing_cents"`
	FreightCents        int64 `json:"freight_cents"`
	DutyCents           int64 `json:"duty_cents"`
	MfgAccessoriesCents int64 `json:"mfg_accessories_cents"`
}

// Get returns the cents for a single component.
func (c ComponentCost) Get(comp Component) int64 {
	switch comp {
	case ComponentManufacturing:
		return c.ManufacturingCents
	case ComponentFreight:
		return c.FreightCents
	case ComponentDuty:
		return c.DutyCents
	case ComponentMfgAccessories:
		return c.MfgAccessoriesCents
	}
	return 0
}

// WithComponent returns a copy with cents added to a single component.
func (c ComponentCost) WithComponent(comp Component, cents int64) ComponentCost {
	switch comp {
	case ComponentManufacturing:
		c.ManufacturingCents += cents
	case ComponentFreight:
		c.FreightCents += cents
	case ComponentDuty:
		c.DutyCents += cents
	case ComponentMfgAccessories:
		c.MfgAccessoriesCents += cents
	}
	return c
}

// Add returns the component-wise sum.
func (c ComponentCost) Add(o ComponentCost) ComponentCost {
	return ComponentCost{
		ManufacturingCents:  c.ManufacturingCents + o.ManufacturingCents,
		FreightCents:        c.FreightCents + o.FreightCents,
		DutyCents:           c.DutyCents + o.DutyCents,
		MfgAccessoriesCents: c.MfgAccessoriesCents + o.MfgAccessoriesCents,
	}
}

// Sub returns the component-wise difference.
func (c ComponentCost) Sub(o ComponentCost) ComponentCost {
	return ComponentCost{
		ManufacturingCents:  c.ManufacturingCents - o.ManufacturingCents,
		FreightCents:        c.FreightCents - o.FreightCents,
		DutyCents:           c.DutyCents - o.DutyCents,
		MfgAccessoriesCents: c.MfgAccessoriesCents - o.MfgAccessoriesCents,
	}
}

// Neg returns the cost with every component negated.
func (c ComponentCost) Neg() ComponentCost {
	return ComponentCost{
		ManufacturingCents:  -c.ManufacturingCents,
		FreightCents:        -c.FreightCents,
		DutyCents:           -c.DutyCents,
		MfgAccessoriesCents: -c.MfgAccessoriesCents,
	}
}

// MulUnits scales a per-unit cost to a unit count.
func (c ComponentCost) MulUnits(units int64) ComponentCost {
	return ComponentCost{
		ManufacturingCents:  c.ManufacturingCents * units,
		FreightCents:        c.FreightCents * units,
		DutyCents:           c.DutyCents * units,
		MfgAccessoriesCents: c.MfgAccessoriesCents * units,
	}
}

// IsZero reports whether every component is zero.
func (c ComponentCost) IsZero() bool {
	return c == ComponentCost{}
}

// TotalCents returns the sum across components.
func (c ComponentCost) TotalCents() int64 {
	return c.ManufacturingCents + c.FreightCents + c.DutyCents + c.MfgAccessoriesCents
}

// RemoveProportion removes num/den of the cost and returns both the removed
// slice and what remains. Each component rounds half up; removed+remaining
// always equals the original, so repeated partial removals that exhaust den
// sum exactly to the starting cost. num >= den removes everything.
func (c ComponentCost) RemoveProportion(num, den int64) (removed, remaining ComponentCost) {
	if den <= 0 || num <= 0 {
		return ComponentCost{}, c
	}
	if num >= den {
		return c, ComponentCost{}
	}
	for _, comp := range Components() {
		part := RoundHalfUpRatio(c.Get(comp), num, den)
		removed = removed.WithComponent(comp, part)
		remaining = remaining.WithComponent(comp, c.Get(comp)-part)
	}
	return removed, remaining
}
