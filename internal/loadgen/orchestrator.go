package loadgen

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/imishinist/nnperf/internal/remote"
	timeutils "github.com/imishinist/nnperf/internal/time"
)

// KillWorkersCommand terminates every JMeter server process on a host.
const KillWorkersCommand = `pid=$(ps -ef | grep -v grep | grep "ApacheJMeter" | awk '{print $2}'); kill $pid`

// ServerLog is written by JMeter servers next to the runner.
const ServerLog = "jmeter-server.log"

type Options struct {
	Workers    []string
	Master     string
	InstallDir string

	// MasterOutput receives the master's combined output.
	MasterOutput string
	// OutputDir holds one worker-<host>.out file per worker.
	OutputDir string
	// Settle is the pause between starting workers and starting the master.
	Settle time.Duration
}

// Orchestrator runs one distributed JMeter benchmark: workers in the
// background, the master in the foreground.
type Orchestrator struct {
	exec  remote.Executor
	opts  Options
	sleep func(context.Context, time.Duration) error
}

func NewOrchestrator(exec remote.Executor, opts Options) *Orchestrator {
	return &Orchestrator{exec: exec, opts: opts, sleep: timeutils.Sleep}
}

func (o *Orchestrator) WorkerOutput(host string) string {
	return filepath.Join(o.opts.OutputDir, fmt.Sprintf("worker-%s.out", host))
}

// Artifacts lists the local files one run produces.
func (o *Orchestrator) Artifacts() []string {
	files := make([]string, 0, len(o.opts.Workers)+2)
	for _, host := range o.opts.Workers {
		files = append(files, o.WorkerOutput(host))
	}
	return append(files, filepath.Join(o.opts.OutputDir, ServerLog), o.opts.MasterOutput)
}

// Run starts the workers, blocks on the master until the benchmark is over,
// then terminates the workers and joins them. No worker task is left running
// when Run returns, whatever the outcome. Worker and master failures are
// logged only: the master's output decides whether the run succeeded.
func (o *Orchestrator) Run(ctx context.Context) error {
	var tasks remote.TaskSet
	defer func() {
		o.terminateWorkers(context.WithoutCancel(ctx))
		if err := tasks.Join(); err != nil {
			log.WithError(err).Warn("jmeter servers exited with errors")
		}
		log.WithField("workers", len(o.opts.Workers)).Info("jmeter servers joined")
	}()

	workerCmd := fmt.Sprintf("cd %s; ./run-worker.sh", o.opts.InstallDir)
	for _, host := range o.opts.Workers {
		log.WithField("host", host).Info("starting jmeter server")
		o.exec.RunAsync(ctx, &tasks, host, workerCmd, o.WorkerOutput(host))
	}

	log.Infof("waiting %s before starting jmeter", o.opts.Settle)
	if err := o.sleep(ctx, o.opts.Settle); err != nil {
		return err
	}

	log.WithField("host", o.opts.Master).Info("starting jmeter master")
	masterCmd := fmt.Sprintf("cd %s; ./run-master.sh", o.opts.InstallDir)
	if err := o.exec.Run(ctx, o.opts.Master, masterCmd, o.opts.MasterOutput); err != nil {
		log.WithError(err).Warn("jmeter master exited with error")
	}
	log.Info("jmeter run finished")
	return nil
}

func (o *Orchestrator) terminateWorkers(ctx context.Context) {
	for _, host := range o.opts.Workers {
		if err := o.exec.Run(ctx, host, KillWorkersCommand, ""); err != nil {
			log.WithError(err).WithField("host", host).Warn("failed to terminate jmeter server")
		}
	}
}
