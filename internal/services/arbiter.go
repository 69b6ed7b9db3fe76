package services

import (
	"github.com/google/logger"

	"giveaway/internal/imaging"
	"giveaway/internal/models"
	"giveaway/internal/store"
)

// ClaimDecision is what the arbiter hands back to the transport layer
// for rendering: the outcome tag, on award the full-resolution prize
// image, and whether this award completed the participant's catalog.
type ClaimDecision struct {
	Result       models.ClaimResult
	Image        []byte
	AllCollected bool
}

// ClaimArbiter is the single choke point between the transport layer and
// the ledger. All claim attempts, wherever they come from, go through
// Claim; the store serializes them.
type ClaimArbiter struct {
	store  *store.Store
	images *imaging.Library
}

// NewClaimArbiter creates the arbiter over the ledger store and the
// reveal pipeline.
func NewClaimArbiter(st *store.Store, images *imaging.Library) *ClaimArbiter {
	return &ClaimArbiter{store: st, images: images}
}

// Register adds a participant, idempotently. Returns whether a new
// registration was created.
func (a *ClaimArbiter) Register(userID int64, name string) (bool, error) {
	created, err := a.store.RegisterParticipant(userID, name)
	if err != nil {
		logger.Errorf("register participant %d: %v", userID, err)
		return false, err
	}
	if created {
		logger.Infof("registered participant %d (%s)", userID, name)
	}
	return created, nil
}

// Claim adjudicates one claim attempt. The four primary outcomes are
// values the caller branches on; only ClaimSystemError marks an
// operational failure, and it is logged here so the transport can render
// a generic notice.
func (a *ClaimArbiter) Claim(userID, prizeID int64) ClaimDecision {
	result, err := a.store.AttemptClaim(userID, prizeID)
	if err != nil {
		logger.Errorf("claim by %d on prize %d failed: %v", userID, prizeID, err)
		return ClaimDecision{Result: models.ClaimSystemError}
	}
	if result != models.ClaimAwarded {
		return ClaimDecision{Result: result}
	}

	decision := ClaimDecision{Result: models.ClaimAwarded}

	ref, err := a.store.ImageFor(prizeID)
	if err == nil {
		if img, rerr := a.images.Reveal(ref); rerr == nil {
			decision.Image = img
		} else {
			// The claim stands; the winner just gets no photo.
			logger.Errorf("reveal %s for winner %d: %v", ref, userID, rerr)
		}
	} else {
		logger.Errorf("image lookup for awarded prize %d: %v", prizeID, err)
	}

	total, terr := a.store.TotalPrizeCount()
	won, werr := a.store.DistinctPrizesWonBy(userID)
	if terr == nil && werr == nil && total > 0 && won >= total {
		decision.AllCollected = true
		logger.Infof("participant %d has collected all %d prizes", userID, total)
	}
	return decision
}

// Leaderboard returns the top winners by distinct prizes.
func (a *ClaimArbiter) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	return a.store.Leaderboard(limit)
}

// Progress returns how many distinct prizes the participant holds out of
// the whole catalog.
func (a *ClaimArbiter) Progress(userID int64) (won, total int64, err error) {
	if won, err = a.store.DistinctPrizesWonBy(userID); err != nil {
		return 0, 0, err
	}
	if total, err = a.store.TotalPrizeCount(); err != nil {
		return 0, 0, err
	}
	return won, total, nil
}

// CollageFor renders the participant's progress collage: their prizes in
// full, everything else obscured.
func (a *ClaimArbiter) CollageFor(userID int64) ([]byte, error) {
	all, err := a.store.AllImages()
	if err != nil {
		return nil, err
	}
	wonImages, err := a.store.AllWonImages(userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(wonImages))
	for _, img := range wonImages {
		owned[img] = true
	}
	return a.images.Collage(owned, all)
}
