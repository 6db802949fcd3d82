package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionChallengeReward marks wallet credits paid for completed challenges.
const TransactionChallengeReward = "challenge_reward"

// UserWallet holds a user's spendable reward points, separate from fan score.
type UserWallet struct {
	UserID        string    `gorm:"primaryKey;size:64" json:"user_id"`
	PointsBalance int64     `gorm:"not null;default:0" json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserWallet model.
func (UserWallet) TableName() string {
	return "user_wallets"
}

// PointTransaction is the audit record of a wallet balance change.
type PointTransaction struct {
	ID          string            `gorm:"primaryKey;size:36" json:"id"`
	UserID      string            `gorm:"not null;size:64;index" json:"user_id"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Type        string            `gorm:"size:40;not null" json:"transaction_type"`
	Source      string            `gorm:"size:64" json:"source"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// TableName specifies the table name for PointTransaction model.
func (PointTransaction) TableName() string {
	return "point_transactions"
}
