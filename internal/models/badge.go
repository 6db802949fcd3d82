package models

// BadgeRarity ranks how hard a badge is to earn.
type BadgeRarity string

// Badge rarities.
const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// FanBadge is derived from a fan score at read time and never stored.
type FanBadge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Rarity      BadgeRarity `json:"rarity"`
	Threshold   int64       `json:"threshold,omitempty"`
}
