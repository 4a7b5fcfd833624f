package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"banana-bot/internal/game"
	"banana-bot/internal/game/battle"
	"banana-bot/internal/game/session"
	"banana-bot/internal/model"
	"banana-bot/internal/pkg/timer"
)

var (
	// ErrAlreadyMining is returned when a user starts a second mining trip.
	ErrAlreadyMining = errors.New("already mining")
)

// Mining outcomes reported to MiningRecorder.
const (
	MiningPaid      = "paid"
	MiningEncounter = "encounter"
	MiningCancelled = "cancelled"
	MiningFailed    = "failed"
)

// MiningRecorder is told how every mining trip ended.
type MiningRecorder interface {
	MiningFinished(outcome string)
}

// MiningJob is a trip in flight.
type MiningJob struct {
	ID       string
	UserID   int64
	Tier     int
	Started  time.Time
	Finishes time.Time
}

// MiningOutcome is what a finished trip produced. Exactly one of an
// encounter (Enemy and SessionCode set) or a payout happened, unless Err
// is set.
type MiningOutcome struct {
	Job          MiningJob
	Enemy        *battle.Enemy
	SessionCode  int
	Sludge       int
	Bananas      int64
	SuperNanners int64
	Err          error
}

// MiningNotifier receives finished trips, typically to message the user.
type MiningNotifier func(ctx context.Context, out MiningOutcome)

// MiningOptions configures a MiningService.
type MiningOptions struct {
	Duration        time.Duration
	EncounterChance float64
	RNG             game.RNG
	Recorder        MiningRecorder
	Notify          MiningNotifier
}

// MiningService runs delayed mining trips. A trip either pays out sludge
// or drops the user into a fight with a creature from the tier.
type MiningService struct {
	scheduler *timer.Scheduler
	sessions  *session.Manager
	accounts  *AccountService
	inventory *InventoryService
	tiers     battle.Tiers
	opts      MiningOptions
	now       func() time.Time

	mu   sync.Mutex
	rng  game.RNG // guarded by mu
	jobs map[int64]*MiningJob
}

// NewMiningService creates a new MiningService instance.
func NewMiningService(
	scheduler *timer.Scheduler,
	sessions *session.Manager,
	accounts *AccountService,
	inventory *InventoryService,
	tiers battle.Tiers,
	opts MiningOptions,
) *MiningService {
	if opts.Duration <= 0 {
		opts.Duration = time.Hour
	}
	rng := opts.RNG
	if rng == nil {
		rng = game.NewRand()
	}
	if len(tiers) == 0 {
		tiers = battle.DefaultTiers()
	}
	return &MiningService{
		scheduler: scheduler,
		sessions:  sessions,
		accounts:  accounts,
		inventory: inventory,
		tiers:     tiers,
		opts:      opts,
		now:       time.Now,
		rng:       rng,
		jobs:      make(map[int64]*MiningJob),
	}
}

// Tiers returns the mine layout.
func (s *MiningService) Tiers() battle.Tiers {
	return s.tiers
}

// Start sends the user mining in tier. A negative tier picks the deepest
// tier the user's super drill unlocks.
func (s *MiningService) Start(ctx context.Context, userID int64, tierNum int) (MiningJob, error) {
	drill, err := s.inventory.DrillTier(ctx, userID)
	if err != nil {
		return MiningJob{}, err
	}

	var tier *battle.MineTier
	if tierNum < 0 {
		tier, _ = s.tiers.Deepest(drill)
	} else {
		tier, _ = s.tiers.Get(tierNum)
	}
	if tier == nil {
		return MiningJob{}, game.Invalid("That mine tier doesn't exist!")
	}
	if tier.RequiredDrillTier > drill {
		return MiningJob{}, game.Violation("You need a tier %d super drill to mine there!", tier.RequiredDrillTier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.jobs[userID]; busy {
		return MiningJob{}, ErrAlreadyMining
	}

	now := s.now()
	job := &MiningJob{
		UserID:   userID,
		Tier:     tier.Tier,
		Started:  now,
		Finishes: now.Add(s.opts.Duration),
	}
	job.ID = s.scheduler.Schedule(s.opts.Duration, func(ctx context.Context) {
		s.complete(ctx, job)
	})
	s.jobs[userID] = job

	log.Info().Int64("user_id", userID).Int("tier", tier.Tier).Str("job_id", job.ID).Msg("Mining started")
	return *job, nil
}

// Cancel abandons the user's trip.
func (s *MiningService) Cancel(userID int64) bool {
	s.mu.Lock()
	job, ok := s.jobs[userID]
	if ok {
		delete(s.jobs, userID)
		s.scheduler.Cancel(job.ID)
	}
	s.mu.Unlock()

	if ok {
		s.record(MiningCancelled)
		log.Info().Int64("user_id", userID).Str("job_id", job.ID).Msg("Mining cancelled")
	}
	return ok
}

// IsMining reports whether the user has a trip in flight.
func (s *MiningService) IsMining(userID int64) bool {
	_, ok := s.Job(userID)
	return ok
}

// Job returns the user's trip in flight.
func (s *MiningService) Job(userID int64) (MiningJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[userID]
	if !ok {
		return MiningJob{}, false
	}
	return *job, true
}

func (s *MiningService) complete(ctx context.Context, job *MiningJob) {
	s.mu.Lock()
	if s.jobs[job.UserID] != job {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, job.UserID)

	tier, _ := s.tiers.Get(job.Tier)
	var enemy *battle.Enemy
	if game.Chance(s.rng, s.opts.EncounterChance) {
		if e, ok := tier.RandomEnemy(s.rng); ok {
			enemy = &e
		}
	}
	sludge := game.Roll(s.rng, tier.Drops.Sludge)
	var nanners int64
	if game.Chance(s.rng, tier.SuperNannerChance) {
		nanners = 1
		if tier.Drops.SuperNanners != nil {
			nanners = int64(game.Roll(s.rng, *tier.Drops.SuperNanners))
		}
	}
	s.mu.Unlock()

	out := MiningOutcome{Job: *job}
	if enemy != nil {
		code, err := s.encounter(ctx, job.UserID, *enemy, tier.SludgeWorth)
		switch {
		case err == nil:
			out.Enemy = enemy
			out.SessionCode = code
			s.finish(ctx, out, MiningEncounter)
			return
		case !errors.Is(err, game.ErrAlreadyInSession):
			out.Err = err
			s.finish(ctx, out, MiningFailed)
			return
		}
		// Busy players skip the fight and keep the haul.
	}

	out.Sludge = sludge
	out.Bananas = int64(sludge) * tier.SludgeWorth
	out.SuperNanners = nanners
	if err := s.accounts.Credit(ctx, job.UserID, out.Bananas, model.TxTypeMining); err != nil {
		out.Err = err
		s.finish(ctx, out, MiningFailed)
		return
	}
	if nanners > 0 {
		if err := s.accounts.CreditSuperNanners(ctx, job.UserID, nanners); err != nil {
			out.Err = err
			s.finish(ctx, out, MiningFailed)
			return
		}
	}
	s.finish(ctx, out, MiningPaid)
}

func (s *MiningService) encounter(ctx context.Context, userID int64, enemy battle.Enemy, sludgeWorth int64) (int, error) {
	return s.sessions.Create(ctx, userID, func(context.Context) (game.Variant, error) {
		return battle.NewMineBattle(s.accounts, s.inventory, userID, enemy, sludgeWorth, nil), nil
	})
}

func (s *MiningService) finish(ctx context.Context, out MiningOutcome, outcome string) {
	s.record(outcome)
	ev := log.Info()
	if out.Err != nil {
		ev = log.Error().Err(out.Err)
	}
	ev.Int64("user_id", out.Job.UserID).
		Str("job_id", out.Job.ID).
		Str("outcome", outcome).
		Int("sludge", out.Sludge).
		Int64("bananas", out.Bananas).
		Msg("Mining finished")

	if s.opts.Notify != nil {
		s.opts.Notify(ctx, out)
	}
}

func (s *MiningService) record(outcome string) {
	if s.opts.Recorder != nil {
		s.opts.Recorder.MiningFinished(outcome)
	}
}
