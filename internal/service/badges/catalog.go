// Package badges classifies fan scores into display badges. Badges are derived at
// read time from a score and a streak and are never stored.
package badges

import (
	"github.com/aimd54/fanscore/internal/models"
)

// Metrics a badge criterion can test.
const (
	MetricTotalScore      = "total_score"
	MetricConsecutiveDays = "consecutive_days"
)

// Criteria is a single threshold test against a fan metric.
type Criteria struct {
	Metric   string
	Operator string // "<", "<=", ">", ">=", "=="
	Value    float64
}

// Definition describes one badge of the catalog.
type Definition struct {
	Slug        string
	Name        string
	Description string
	Icon        string
	Rarity      models.BadgeRarity
	Criteria    Criteria
	// Tier badges are mutually exclusive: only the highest earned one is shown.
	Tier bool
}

// catalog lists tier badges from highest to lowest threshold.
var catalog = []Definition{
	{
		Slug: "legendary", Name: "Legendary Fan", Icon: "👑", Rarity: models.RarityLegendary, Tier: true,
		Description: "Reached 10,000 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 10000},
	},
	{
		Slug: "diamond", Name: "Diamond Fan", Icon: "💎", Rarity: models.RarityEpic, Tier: true,
		Description: "Reached 5,000 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 5000},
	},
	{
		Slug: "platinum", Name: "Platinum Fan", Icon: "🏆", Rarity: models.RarityRare, Tier: true,
		Description: "Reached 2,500 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 2500},
	},
	{
		Slug: "gold", Name: "Gold Fan", Icon: "🥇", Rarity: models.RarityRare, Tier: true,
		Description: "Reached 1,000 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 1000},
	},
	{
		Slug: "silver", Name: "Silver Fan", Icon: "🥈", Rarity: models.RarityCommon, Tier: true,
		Description: "Reached 500 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 500},
	},
	{
		Slug: "bronze", Name: "Bronze Fan", Icon: "🥉", Rarity: models.RarityCommon, Tier: true,
		Description: "Reached 100 fan points",
		Criteria:    Criteria{Metric: MetricTotalScore, Operator: ">=", Value: 100},
	},
	{
		Slug: "consistent", Name: "Consistent Fan", Icon: "🔥", Rarity: models.RarityRare,
		Description: "Engaged 30 days in a row",
		Criteria:    Criteria{Metric: MetricConsecutiveDays, Operator: ">=", Value: 30},
	},
}

// Catalog returns a copy of every badge definition.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition with the given slug.
func Lookup(slug string) (Definition, bool) {
	for _, def := range catalog {
		if def.Slug == slug {
			return def, true
		}
	}
	return Definition{}, false
}

// BadgeID is the id of a badge earned for an artist.
func BadgeID(slug, artistID string) string {
	return slug + "-" + artistID
}
