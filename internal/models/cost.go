package models

// Cost categories used for the monthly estimate breakdown and for cost rules.
const (
	CostCategoryCompute  = "compute"
	CostCategoryStorage  = "storage"
	CostCategoryNetwork  = "network"
	CostCategoryDatabase = "database"
	CostCategoryOther    = "other"
)

// CostCategories lists every cost category in display order.
func CostCategories() []string {
	return []string{
		CostCategoryCompute,
		CostCategoryStorage,
		CostCategoryNetwork,
		CostCategoryDatabase,
		CostCategoryOther,
	}
}

// ResourceCost is the monthly estimate for one resource change.
type ResourceCost struct {
	Address  string `json:"address"`
	Type     string `json:"type"`
	Category string `json:"category"`
	// PricingKey is the SKU the estimate was priced with (instance type,
	// volume type, DB class). Empty for flat-rate resources.
	PricingKey string `json:"pricing_key,omitempty"`
	// Defaulted is true when the SKU was not in the price table and the
	// conservative default rate was used instead.
	Defaulted           bool    `json:"defaulted,omitempty"`
	MonthlyCost         float64 `json:"monthly_cost_usd"`
	PreviousMonthlyCost float64 `json:"previous_monthly_cost_usd"`
	MonthlyDelta        float64 `json:"monthly_delta_usd"`
}

// CostAnalysis is the cost engine's estimate for a whole plan.
type CostAnalysis struct {
	TotalMonthlyCost    float64            `json:"total_monthly_cost_usd"`
	PreviousMonthlyCost float64            `json:"previous_monthly_cost_usd"`
	MonthlyDelta        float64            `json:"monthly_delta_usd"`
	PotentialSavings    float64            `json:"potential_savings_usd"`
	ByCategory          map[string]float64 `json:"by_category"`
	ByResourceType      map[string]float64 `json:"by_resource_type"`
	Resources           []ResourceCost     `json:"resources"`
}

// CostRecommendation groups cost findings of one category.
type CostRecommendation struct {
	Category         string   `json:"category"`
	PotentialSavings float64  `json:"potential_savings_usd"`
	FindingCount     int      `json:"finding_count"`
	Effort           string   `json:"effort"`
	RuleIDs          []string `json:"rule_ids"`
	Resources        []string `json:"resources"`
}
