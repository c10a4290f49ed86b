package cost

// Firecrawl credit pricing for /scrape.
const (
	creditsPerScrape   = 1
	creditsPerJSONPage = 4
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	Firecrawl FirecrawlRate `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// FirecrawlRate holds Firecrawl plan pricing.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// FirecrawlCredits estimates the credits consumed by the given number of
// scrapes. Structured (JSON) extraction costs extra per page.
func (c *Calculator) FirecrawlCredits(scrapes int, structured bool) int {
	if scrapes <= 0 {
		return 0
	}
	per := creditsPerScrape
	if structured {
		per += creditsPerJSONPage
	}
	return scrapes * per
}

// FirecrawlUSD converts credits to dollars at the plan's effective
// per-credit price. Zero when the plan has no included credits.
func (c *Calculator) FirecrawlUSD(credits int) float64 {
	r := c.rates.Firecrawl
	if r.CreditsIncluded <= 0 {
		return 0
	}
	return float64(credits) * r.PlanMonthly / r.CreditsIncluded
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Firecrawl: FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
