package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/hri-lab/shield-engine/internal/config"
	"github.com/hri-lab/shield-engine/internal/gen"
	"github.com/hri-lab/shield-engine/internal/pub"
	"github.com/hri-lab/shield-engine/internal/reach"
	"github.com/hri-lab/shield-engine/internal/shield"
)

var (
	runConfigPath string
	runGoalAddr   string
	runOutputAddr string
	runDisabled   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shield control loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		if runGoalAddr != "" {
			cfg.Goal.UDPAddr = runGoalAddr
		}
		if runOutputAddr != "" {
			cfg.Output.UDPAddr = runOutputAddr
		}
		if runDisabled {
			cfg.Enabled = false
		}
		return runShield(cfg)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "shield.yaml", "Path to YAML config")
	runCmd.Flags().StringVar(&runGoalAddr, "goal-addr", "", "Override goal UDP listen addr (host:port)")
	runCmd.Flags().StringVar(&runOutputAddr, "output-addr", "", "Override motion output UDP addr (host:port)")
	runCmd.Flags().BoolVar(&runDisabled, "no-shield", false, "Bypass verification and publish unverified motions")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func runShield(cfg config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	generator := &gen.Generator{
		SampleTime:     cfg.SampleTime,
		BufferDuration: cfg.BufferDuration,
		VMax:           cfg.VMaxAllowed,
		AMax:           cfg.AMaxLTT,
		JMax:           cfg.JMaxLTT,
	}
	initial, err := generator.Hold(cfg.InitQ, int(cfg.BufferDuration/cfg.SampleTime))
	if err != nil {
		return fmt.Errorf("building initial trajectory: %w", err)
	}

	sender, err := pub.NewUDPSender(cfg.Output.UDPAddr)
	if err != nil {
		return err
	}
	defer func() { _ = sender.Close() }()

	humanPoints := make([]reach.Vec3, len(cfg.Human.Points))
	for i, p := range cfg.Human.Points {
		humanPoints[i] = reach.Vec3(p)
	}
	sh, err := shield.New(cfg.ShieldParams(), initial, shield.Deps{
		Robot: &reach.Arm{
			Base:        reach.Vec3(cfg.Robot.Base),
			LinkLengths: cfg.Robot.LinkLengths,
			LinkRadius:  cfg.Robot.LinkRadius,
		},
		Human: &reach.Human{
			Points:  humanPoints,
			VMax:    cfg.Human.VMax,
			Horizon: cfg.Human.Horizon,
			Margin:  cfg.Human.Margin,
		},
		Verifier:  reach.Verifier{Clearance: cfg.Human.Clearance},
		Generator: generator,
		Publisher: pub.Tee{sender, pub.Logger{Log: logger}},
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listenGoals(ctx, cfg, sh, logger) })
	g.Go(func() error { return cycleLoop(ctx, cfg, sh, logger) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// cycleLoop executes one shield cycle per sample interval, passing the cycle
// begin time explicitly.
func cycleLoop(ctx context.Context, cfg config.Config, sh *shield.Shield, logger *zap.Logger) error {
	ticker := time.NewTicker(time.Duration(cfg.SampleTime * float64(time.Second)))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			sh.Step(now.Sub(start).Seconds())
		}
	}
}

// listenGoals receives goal requests as UDP CSV datagrams: n joint positions,
// optionally followed by n joint velocities.
func listenGoals(ctx context.Context, cfg config.Config, sh *shield.Shield, logger *zap.Logger) error {
	if cfg.Goal.UDPAddr == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	addr, err := net.ResolveUDPAddr("udp", cfg.Goal.UDPAddr)
	if err != nil {
		return fmt.Errorf("resolving goal addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listening for goals: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, cfg.Goal.ReadBuffer)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("goal listener: %w", err)
			}
			logger.Warn("goal read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		goalQ, goalDQ, err := parseGoal(buf[:n], cfg.Joints)
		if err != nil {
			logger.Warn("discarding malformed goal", zap.Error(err))
			continue
		}
		if id, err := sh.RequestGoal(goalQ, goalDQ); err != nil {
			logger.Warn("goal rejected", zap.String("request", id.String()), zap.Error(err))
		}
	}
}

// parseGoal parses a CSV payload into goal positions and velocities.
func parseGoal(b []byte, joints int) ([]float64, []float64, error) {
	fields := strings.Split(strings.TrimSpace(string(b)), ",")
	if len(fields) != joints && len(fields) != 2*joints {
		return nil, nil, fmt.Errorf("expected %d or %d fields, got %d", joints, 2*joints, len(fields))
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, nil, err
		}
		vals[i] = v
	}
	goalQ := vals[:joints]
	goalDQ := make([]float64, joints)
	if len(vals) == 2*joints {
		copy(goalDQ, vals[joints:])
	}
	return goalQ, goalDQ, nil
}
