package models

import "time"

// Participant is a registered giveaway user. The id is assigned by the
// external transport (chat platform) and never changes.
type Participant struct {
	UserID   int64  `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"userId"`
	UserName string `gorm:"column:user_name" json:"userName"`
}

func (Participant) TableName() string {
	return "users"
}

// Prize is a single giveaway unit backed by one image. Used flips to true
// exactly once, when the winner cap is reached, and never reverts.
type Prize struct {
	PrizeID int64  `gorm:"column:prize_id;primaryKey;autoIncrement" json:"prizeId"`
	Image   string `gorm:"column:image;uniqueIndex" json:"image"`
	Used    bool   `gorm:"column:used;default:false" json:"used"`
}

func (Prize) TableName() string {
	return "prizes"
}

// Claim records that a participant was awarded a prize. Rows are never
// updated or deleted; the (user, prize) pair is unique.
type Claim struct {
	WinID   int64     `gorm:"column:win_id;primaryKey;autoIncrement" json:"winId"`
	UserID  int64     `gorm:"column:user_id;uniqueIndex:idx_winners_user_prize" json:"userId"`
	PrizeID int64     `gorm:"column:prize_id;uniqueIndex:idx_winners_user_prize" json:"prizeId"`
	WinTime time.Time `gorm:"column:win_time" json:"winTime"`
}

func (Claim) TableName() string {
	return "winners"
}

// LeaderboardEntry is one row of the top-winners report.
type LeaderboardEntry struct {
	Name       string `json:"name"`
	PrizeCount int64  `json:"prizeCount"`
}

// ClaimResult is the closed set of outcomes of a claim attempt.
type ClaimResult int

const (
	// ClaimAwarded: the claim was recorded and the participant won.
	ClaimAwarded ClaimResult = iota
	// ClaimAlreadyOwn: this participant already holds this prize.
	ClaimAlreadyOwn
	// ClaimExhausted: the winner cap was reached by other participants.
	ClaimExhausted
	// ClaimNotFound: no such prize.
	ClaimNotFound
	// ClaimSystemError: storage or I/O failure; safe to retry.
	ClaimSystemError
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimAwarded:
		return "awarded"
	case ClaimAlreadyOwn:
		return "already_claimed"
	case ClaimExhausted:
		return "exhausted"
	case ClaimNotFound:
		return "not_found"
	default:
		return "system_error"
	}
}
