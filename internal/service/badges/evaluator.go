package badges

import (
	"fmt"

	"github.com/aimd54/fanscore/internal/models"
)

// Calculate returns the badges earned for an artist with the given score and streak:
// at most one tier badge followed by any non-tier badges.
func Calculate(artistID string, score int64, consecutiveDays int) []models.FanBadge {
	values := map[string]float64{
		MetricTotalScore:      float64(score),
		MetricConsecutiveDays: float64(consecutiveDays),
	}

	var (
		earned  []models.FanBadge
		hasTier bool
	)
	for _, def := range catalog {
		if def.Tier && hasTier {
			continue
		}
		ok, err := evaluate(def.Criteria, values)
		if err != nil || !ok {
			continue
		}
		if def.Tier {
			hasTier = true
		}
		earned = append(earned, toBadge(def, artistID))
	}
	return earned
}

// evaluate compares the criterion's metric against its threshold.
func evaluate(c Criteria, values map[string]float64) (bool, error) {
	actual, ok := values[c.Metric]
	if !ok {
		return false, fmt.Errorf("unknown badge metric: %s", c.Metric)
	}

	switch c.Operator {
	case "<":
		return actual < c.Value, nil
	case "<=":
		return actual <= c.Value, nil
	case ">":
		return actual > c.Value, nil
	case ">=":
		return actual >= c.Value, nil
	case "==":
		return actual == c.Value, nil
	default:
		return false, fmt.Errorf("unknown operator: %s", c.Operator)
	}
}

func toBadge(def Definition, artistID string) models.FanBadge {
	return models.FanBadge{
		ID:          BadgeID(def.Slug, artistID),
		Name:        def.Name,
		Description: def.Description,
		Icon:        def.Icon,
		Rarity:      def.Rarity,
		Threshold:   int64(def.Criteria.Value),
	}
}
