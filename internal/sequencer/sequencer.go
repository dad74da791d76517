// Package sequencer drives the benchmark over every configuration
// combination: reconfigure and restart the service, generate load, then
// record what the run measured.
package sequencer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/cm"
	"github.com/imishinist/nnperf/internal/models"
	"github.com/imishinist/nnperf/internal/remote"
	"github.com/imishinist/nnperf/internal/results"
	"github.com/imishinist/nnperf/internal/telemetry"
	timeutils "github.com/imishinist/nnperf/internal/time"
	"github.com/imishinist/nnperf/internal/window"
)

// CleanupCommand clears the previous run's logs on the NameNode.
const CleanupCommand = "cd /; chmod +x cleanup.sh; ./cleanup.sh"

type Service interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
	AwaitCompletion(ctx context.Context, name string, interval time.Duration) error
}

type Configurer interface {
	ApplyConfig(ctx context.Context, key models.ConfigKey) error
}

type LoadGenerator interface {
	Run(ctx context.Context) error
	Artifacts() []string
}

type Recorder interface {
	Append(record *models.RunRecord) error
}

type Publisher interface {
	Publish(ctx context.Context, record *models.RunRecord, cfg models.RunConfiguration) error
}

type Recoverer interface {
	Recover(ctx context.Context) bool
}

// Deps are the collaborators of one sequence. Publisher and Executor are
// optional.
type Deps struct {
	Service    Service
	Configurer Configurer
	LoadGen    LoadGenerator
	Detector   window.Detector
	Source     telemetry.Source
	Recorder   Recorder
	Publisher  Publisher
	Recovery   Recoverer
	Executor   remote.Executor

	// Configure builds the run description of a combination.
	Configure func(models.ConfigKey) (models.RunConfiguration, error)
}

type Options struct {
	// Session identifies the sequence; a random one is used when empty.
	Session string

	Variants []models.ConfigKey
	Metrics  []string

	NameNode     string
	CleanupLog   string
	MasterOutput string
	RecoveryLog  string
	ArchiveDir   string

	StopPoll     time.Duration
	StartPoll    time.Duration
	HealthSettle time.Duration
	RecoveryWait time.Duration
	Cooldown     time.Duration
}

type Sequencer struct {
	deps    Deps
	opts    Options
	session string
	visited []models.ConfigKey

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

func New(deps Deps, opts Options) *Sequencer {
	session := opts.Session
	if session == "" {
		session = uuid.NewString()
	}
	return &Sequencer{
		deps:    deps,
		opts:    opts,
		session: session,
		sleep:   timeutils.Sleep,
		now:     time.Now,
	}
}

// Session identifies this sequence in logs and mirrored runs.
func (s *Sequencer) Session() string {
	return s.session
}

// Combinations returns the keys whose run was started, in order.
func (s *Sequencer) Combinations() []models.ConfigKey {
	return append([]models.ConfigKey(nil), s.visited...)
}

// Run visits every variant in order. The first fatal error stops the
// sequence; rows appended by earlier variants stay in the results table.
func (s *Sequencer) Run(ctx context.Context) error {
	logger := log.WithField("session", s.session)
	logger.WithField("variants", len(s.opts.Variants)).Info("starting benchmark sequence")

	for i, key := range s.opts.Variants {
		cfg, err := s.deps.Configure(key)
		if err != nil {
			return fmt.Errorf("failed to configure run %s: %w", key, err)
		}
		s.visited = append(s.visited, key)

		logger.WithFields(log.Fields{
			"run":            fmt.Sprintf("%d/%d", i+1, len(s.opts.Variants)),
			"rms":            models.Label(key.RMS),
			"optimization":   models.Label(key.Optimization),
			"read_write_mix": cfg.ReadWriteMix(),
		}).Info("starting run")

		if err := s.runOne(ctx, cfg); err != nil {
			return fmt.Errorf("run %s failed: %w", key, err)
		}

		if cfg.Destructive() {
			if err := s.recover(ctx, cfg); err != nil {
				return err
			}
		}

		logger.Infof("cooling down for %s", s.opts.Cooldown)
		if err := s.sleep(ctx, s.opts.Cooldown); err != nil {
			return err
		}
	}

	logger.Info("benchmark sequence finished")
	return nil
}

func (s *Sequencer) runOne(ctx context.Context, cfg models.RunConfiguration) error {
	if err := s.restart(ctx, cfg.Key); err != nil {
		return err
	}

	log.Infof("waiting %s for the service to settle", s.opts.HealthSettle)
	if err := s.sleep(ctx, s.opts.HealthSettle); err != nil {
		return err
	}

	if err := s.deps.LoadGen.Run(ctx); err != nil {
		return fmt.Errorf("load generation failed: %w", err)
	}

	w, err := window.DetectFile(s.deps.Detector, s.opts.MasterOutput)
	if err != nil {
		return err
	}

	series, err := s.deps.Source.Fetch(ctx, w.AdjustedStart(), w.AdjustedEnd())
	if err != nil {
		return err
	}

	record, err := results.Merge(w, series, cfg, s.opts.Metrics)
	if err != nil {
		return err
	}
	results.Summary(w, record, s.opts.Metrics)
	if err := s.deps.Recorder.Append(record); err != nil {
		return err
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, record, cfg); err != nil {
			log.WithError(err).Warn("failed to mirror run record")
		}
	}

	artifacts := s.deps.LoadGen.Artifacts()
	if s.cleanupEnabled() && s.opts.CleanupLog != "" {
		artifacts = append(artifacts, s.opts.CleanupLog)
	}
	results.Archive(s.opts.ArchiveDir, artifacts, cfg, s.now())
	return nil
}

// restart stops the service, applies the combination's payload and starts
// it again, waiting for each command to complete.
func (s *Sequencer) restart(ctx context.Context, key models.ConfigKey) error {
	if err := s.deps.Service.Stop(ctx); err != nil {
		return err
	}
	if err := s.deps.Service.AwaitCompletion(ctx, cm.CommandStop, s.opts.StopPoll); err != nil {
		return err
	}

	s.cleanup(ctx)

	if err := s.deps.Configurer.ApplyConfig(ctx, key); err != nil {
		return err
	}
	if err := s.deps.Service.Start(ctx); err != nil {
		return err
	}
	return s.deps.Service.AwaitCompletion(ctx, cm.CommandStart, s.opts.StartPoll)
}

func (s *Sequencer) cleanupEnabled() bool {
	return s.deps.Executor != nil && s.opts.NameNode != ""
}

func (s *Sequencer) cleanup(ctx context.Context) {
	if !s.cleanupEnabled() {
		return
	}
	if err := s.deps.Executor.Run(ctx, s.opts.NameNode, CleanupCommand, s.opts.CleanupLog); err != nil {
		log.WithError(err).WithField("host", s.opts.NameNode).Warn("name node cleanup failed")
	}
}

func (s *Sequencer) recover(ctx context.Context, cfg models.RunConfiguration) error {
	log.Infof("waiting %s before recovering deleted files", s.opts.RecoveryWait)
	if err := s.sleep(ctx, s.opts.RecoveryWait); err != nil {
		return err
	}
	if s.deps.Recovery.Recover(ctx) {
		results.Archive(s.opts.ArchiveDir, []string{s.opts.RecoveryLog}, cfg, s.now())
	}
	return nil
}
