package service

// Cost is the static per-call accounting for a service
type Cost struct {
	Tokens int
	Amount float64
}

// CostTable maps service names to their per-call cost
type CostTable map[string]Cost

// DefaultCosts returns the built-in cost table
func DefaultCosts() CostTable {
	return CostTable{
		"postgres": {Tokens: 100, Amount: 0.001},
		"memory":   {Tokens: 50, Amount: 0.0005},
		"cloud":    {Tokens: 150, Amount: 0.002},
		"github":   {Tokens: 120, Amount: 0.0015},
		"n8n":      {Tokens: 200, Amount: 0.003},
		"storage":  {Tokens: 80, Amount: 0.001},
	}
}

// Lookup returns the cost for a service, zero when unlisted
func (t CostTable) Lookup(service string) Cost {
	return t[service]
}
