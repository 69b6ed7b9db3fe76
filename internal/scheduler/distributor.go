package scheduler

import (
	"time"

	"github.com/google/logger"
	"github.com/robfig/cron/v3"

	"giveaway/internal/imaging"
	"giveaway/internal/store"
	"giveaway/internal/transport"
)

// Distributor drives the periodic offer cycle: every interval it picks
// one unclaimed prize, obscures its image and fans the offer out to
// every registered participant. Ticks never overlap; a tick still
// running when the next is due delays it.
type Distributor struct {
	store    *store.Store
	images   *imaging.Library
	sender   transport.Sender
	interval time.Duration
	cron     *cron.Cron
}

// NewDistributor wires the scheduler. Start must be called to begin
// ticking.
func NewDistributor(st *store.Store, images *imaging.Library, sender transport.Sender, interval time.Duration) *Distributor {
	d := &Distributor{store: st, images: images, sender: sender, interval: interval}
	cronLog := cron.PrintfLogger(logf{})
	d.cron = cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.DelayIfStillRunning(cronLog),
	))
	return d
}

// Start schedules the tick and launches the cron loop.
func (d *Distributor) Start() {
	d.cron.Schedule(cron.Every(d.interval), cron.FuncJob(d.Tick))
	d.cron.Start()
	logger.Infof("distributor started, offering a prize every %s", d.interval)
}

// Stop halts the cron loop and waits for a running tick to finish.
func (d *Distributor) Stop() {
	<-d.cron.Stop().Done()
	logger.Info("distributor stopped")
}

// Tick runs one offer cycle. Every early return leaves the ledger
// untouched: a prize only stops being offered once real claims exhaust
// it.
func (d *Distributor) Tick() {
	prize, err := d.store.PickUnclaimedPrize()
	if err != nil {
		logger.Errorf("distributor: picking a prize: %v", err)
		return
	}
	if prize == nil {
		// Expected steady state once the whole catalog is claimed.
		logger.Info("distributor: no unclaimed prizes left, skipping tick")
		return
	}

	if err := d.images.Obscure(prize.Image); err != nil {
		logger.Errorf("distributor: %v", err)
		return
	}
	obscured, err := d.images.ObscuredBytes(prize.Image)
	if err != nil {
		logger.Errorf("distributor: reading obscured %s: %v", prize.Image, err)
		return
	}

	participants, err := d.store.ListParticipants()
	if err != nil {
		logger.Errorf("distributor: listing participants: %v", err)
		return
	}
	if len(participants) == 0 {
		logger.Info("distributor: no registered participants, skipping tick")
		return
	}

	logger.Infof("distributor: offering prize %d (%s) to %d participants",
		prize.PrizeID, prize.Image, len(participants))

	delivered := 0
	for _, userID := range participants {
		// One failed delivery must not block the rest.
		if err := d.sender.Offer(userID, prize.PrizeID, obscured); err != nil {
			logger.Errorf("distributor: offer to %d failed: %v", userID, err)
			continue
		}
		delivered++
	}
	logger.Infof("distributor: prize %d offered, %d/%d deliveries succeeded",
		prize.PrizeID, delivered, len(participants))
}

// logf adapts google/logger to cron's Printf-style logger.
type logf struct{}

func (logf) Printf(format string, args ...interface{}) {
	logger.Infof(format, args...)
}
