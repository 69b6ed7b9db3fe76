package store

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"giveaway/internal/models"
)

// ErrPrizeNotFound is returned by reads that reference a missing prize.
var ErrPrizeNotFound = errors.New("prize not found")

// Store is the source of truth for participants, prizes and claims.
// Every public method takes the store mutex, so all mutations and the
// compound claim sequence are serialized process-wide. The lock is never
// held across anything but the local database.
type Store struct {
	mu        sync.Mutex
	db        *gorm.DB
	winnerCap int
}

// New opens (creating if needed) the sqlite database at path and migrates
// the users/prizes/winners tables. winnerCap is the per-prize limit on
// distinct winners.
func New(path string, winnerCap int) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Participant{}, &models.Prize{}, &models.Claim{}); err != nil {
		return nil, err
	}
	return &Store{db: db, winnerCap: winnerCap}, nil
}

// WinnerCap returns the configured per-prize winner limit.
func (s *Store) WinnerCap() int {
	return s.winnerCap
}

// RegisterParticipant inserts the participant if absent. Returns true if a
// new row was created, false if the id was already registered. Duplicate
// registration is a no-op, not an error.
func (s *Store) RegisterParticipant(userID int64, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.Model(&models.Participant{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := s.db.Create(&models.Participant{UserID: userID, UserName: name}).Error; err != nil {
		return false, err
	}
	return true, nil
}

// SeedPrizes bulk-inserts the catalog, but only when the prize table is
// empty. Re-seeding an in-progress giveaway is a deliberate no-op.
func (s *Store) SeedPrizes(imageRefs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.Model(&models.Prize{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 || len(imageRefs) == 0 {
		return 0, nil
	}
	prizes := make([]models.Prize, 0, len(imageRefs))
	for _, ref := range imageRefs {
		prizes = append(prizes, models.Prize{Image: ref})
	}
	res := s.db.Create(&prizes)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// PickUnclaimedPrize returns one prize chosen uniformly at random among
// those not yet exhausted, or nil when every prize is gone. The candidate
// set is queried fresh on every call.
func (s *Store) PickUnclaimedPrize() (*models.Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []models.Prize
	if err := s.db.Where("used = ?", false).Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	p := candidates[rand.Intn(len(candidates))]
	return &p, nil
}

// ListParticipants returns every registered participant id.
func (s *Store) ListParticipants() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	if err := s.db.Model(&models.Participant{}).Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ImageFor returns the image reference of a prize.
func (s *Store) ImageFor(prizeID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prize models.Prize
	err := s.db.Where("prize_id = ?", prizeID).First(&prize).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPrizeNotFound
	}
	if err != nil {
		return "", err
	}
	return prize.Image, nil
}

// DistinctClaimCount returns how many distinct participants hold a claim
// on the prize. A missing prize counts zero.
func (s *Store) DistinctClaimCount(prizeID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distinctClaimCountLocked(prizeID)
}

// TotalPrizeCount returns the catalog size.
func (s *Store) TotalPrizeCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.db.Model(&models.Prize{}).Count(&count).Error
	return count, err
}

// DistinctPrizesWonBy returns how many distinct prizes the participant
// has claimed.
func (s *Store) DistinctPrizesWonBy(userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.db.Model(&models.Claim{}).
		Where("user_id = ?", userID).
		Distinct("prize_id").
		Count(&count).Error
	return count, err
}

// Leaderboard returns up to limit participants ordered by distinct prizes
// won, descending.
func (s *Store) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.LeaderboardEntry
	err := s.db.Table("users").
		Select("users.user_name AS name, COUNT(DISTINCT winners.prize_id) AS prize_count").
		Joins("JOIN winners ON winners.user_id = users.user_id").
		Group("users.user_id, users.user_name").
		Order("prize_count DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AllWonImages returns the image references of every prize the
// participant has claimed.
func (s *Store) AllWonImages(userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var images []string
	err := s.db.Table("winners").
		Joins("JOIN prizes ON prizes.prize_id = winners.prize_id").
		Where("winners.user_id = ?", userID).
		Pluck("prizes.image", &images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

// AllImages returns the full prize catalog's image references.
func (s *Store) AllImages() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var images []string
	err := s.db.Model(&models.Prize{}).Pluck("image", &images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

// AttemptClaim runs the whole claim sequence — existence check, own-claim
// check, cap check, insert, exhaustion finalization — under the store
// mutex and inside one transaction. Outcomes:
//
//   - ClaimNotFound when the prize does not exist;
//   - ClaimAlreadyOwn when this participant already holds the prize
//     (checked before the cap, so a prior winner always gets this answer
//     even after the prize is exhausted);
//   - ClaimExhausted when the cap is already reached; if the used flag
//     lags the count, it is finalized here before returning;
//   - ClaimAwarded when a claim row was written; the claim that brings
//     the distinct count to the cap also sets used in the same
//     transaction.
//
// A unique-constraint rejection from the database is mapped to
// ClaimAlreadyOwn rather than treated as a failure: it means a duplicate
// slipped past the application-level check.
func (s *Store) AttemptClaim(userID, prizeID int64) (models.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := models.ClaimSystemError
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var prize models.Prize
		if err := tx.Where("prize_id = ?", prizeID).First(&prize).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = models.ClaimNotFound
				return nil
			}
			return err
		}

		var own int64
		if err := tx.Model(&models.Claim{}).
			Where("user_id = ? AND prize_id = ?", userID, prizeID).
			Count(&own).Error; err != nil {
			return err
		}
		if own > 0 {
			result = models.ClaimAlreadyOwn
			return nil
		}

		count, err := s.distinctClaimCountTx(tx, prizeID)
		if err != nil {
			return err
		}
		if prize.Used || count >= int64(s.winnerCap) {
			// Lazy finalization: an attempt that observes a full prize
			// with the flag still unset settles the flag now.
			if !prize.Used {
				if err := tx.Model(&models.Prize{}).
					Where("prize_id = ?", prizeID).
					Update("used", true).Error; err != nil {
					return err
				}
			}
			result = models.ClaimExhausted
			return nil
		}

		claim := models.Claim{UserID: userID, PrizeID: prizeID, WinTime: time.Now()}
		if err := tx.Create(&claim).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result = models.ClaimAlreadyOwn
				return nil
			}
			return err
		}

		if count+1 >= int64(s.winnerCap) {
			if err := tx.Model(&models.Prize{}).
				Where("prize_id = ?", prizeID).
				Update("used", true).Error; err != nil {
				return err
			}
		}
		result = models.ClaimAwarded
		return nil
	})
	if err != nil {
		return models.ClaimSystemError, err
	}
	return result, nil
}

func (s *Store) distinctClaimCountLocked(prizeID int64) (int64, error) {
	return s.distinctClaimCountTx(s.db, prizeID)
}

func (s *Store) distinctClaimCountTx(tx *gorm.DB, prizeID int64) (int64, error) {
	var count int64
	err := tx.Model(&models.Claim{}).
		Where("prize_id = ?", prizeID).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}
