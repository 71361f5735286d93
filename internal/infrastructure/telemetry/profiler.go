package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

const defaultProfileRate = 5

// ProfilerConfig enables continuous profiling against a Pyroscope server.
type ProfilerConfig struct {
	Enabled       bool
	ServerAddress string
	BasicAuthUser string
	BasicAuthPass string
	// Contention adds mutex and block profiles to the CPU and heap ones
	Contention bool
}

// Profiler pushes profiles until Stop. A disabled profiler does nothing.
type Profiler struct {
	running *pyroscope.Profiler
	log     *zap.Logger
	once    sync.Once
}

func NewProfiler(cfg ProfilerConfig, serviceName string, log *zap.Logger) (*Profiler, error) {
	p := &Profiler{log: log}
	if !cfg.Enabled {
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, errors.New("profiler server address is required")
	}

	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if cfg.Contention {
		runtime.SetMutexProfileFraction(defaultProfileRate)
		runtime.SetBlockProfileRate(defaultProfileRate)
		types = append(types, pyroscope.ProfileMutexDuration, pyroscope.ProfileBlockDuration)
	}

	tags := map[string]string{}
	if host, _ := os.Hostname(); host != "" {
		tags["hostname"] = host
	}

	running, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   serviceName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPass,
		Logger:            pyroscopeLogger{log.Named("pyroscope").Sugar()},
		Tags:              tags,
		ProfileTypes:      types,
	})
	if err != nil {
		return nil, fmt.Errorf("start profiler: %w", err)
	}
	p.running = running
	log.Info("Continuous profiling enabled",
		zap.String("server", cfg.ServerAddress),
		zap.Int("profile_types", len(types)))
	return p, nil
}

func (p *Profiler) IsEnabled() bool { return p.running != nil }

// Stop flushes pending profiles once. Later calls return nil.
func (p *Profiler) Stop() error {
	var err error
	p.once.Do(func() {
		if p.running == nil {
			return
		}
		if err = p.running.Stop(); err != nil {
			p.log.Error("Profiler stop failed", zap.Error(err))
			err = fmt.Errorf("stop profiler: %w", err)
		}
	})
	return err
}

// WithProfileLabels runs fn with pprof labels attached to the goroutine, so
// samples taken inside fn can be filtered by them. Empty values are dropped.
func WithProfileLabels(ctx context.Context, fn func(context.Context), kv ...string) {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] != "" && kv[i+1] != "" {
			pairs = append(pairs, kv[i], kv[i+1])
		}
	}
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

type pyroscopeLogger struct{ *zap.SugaredLogger }
