package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/glugsim/gluon"
	"github.com/glugsim/gluon/internal/config"
	"github.com/glugsim/gluon/internal/logging"
	"github.com/glugsim/gluon/internal/transport"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the TOML configuration file")
		socketPath = flag.String("socket", "", "Unix-domain socket path (overrides server.socket_path)")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if len(cfg.GLUG.GLULs) == 0 {
		cfg.GLUG.GLULs = []config.GLULConfig{config.DefaultGLUL(0)}
	}

	path := cfg.Server.SocketPath
	if *socketPath != "" {
		path = *socketPath
	}
	if path == "" {
		logger.Error("no socket path configured; set server.socket_path or pass -socket")
		os.Exit(1)
	}

	logging.Named("gluon").SetLevel(logging.LevelFromVerbosity(cfg.GLUG.GluonLogLevel))
	logging.Named("muon").SetLevel(logging.LevelFromVerbosity(cfg.GLUG.MuonLogLevel))

	ln, err := transport.Listen(path)
	if err != nil {
		logger.Error("failed to listen", "socket", path, "error", err)
		os.Exit(1)
	}
	logger.Info("listening", "socket", path, "gluls", len(cfg.GLUG.GLULs), "dram_size", cfg.GLUG.DRAMSize)

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go dumpStacksOnSignal(logger, stackDumpCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, closing listener")
		ln.Close()
	}()

	conn, err := ln.AcceptUnix()
	if err != nil {
		logger.Info("listener closed before a client connected")
		os.Exit(0)
	}
	defer conn.Close()

	logger.Info("client connected, serving")

	var sim *gluon.Simulator
	res, err := transport.Serve(conn, func(host transport.HostMemory) transport.Core {
		sim = gluon.New(cfg, host, nil)
		return sim
	})
	if sim != nil {
		snap := sim.MetricsSnapshot()
		logger.Info("session metrics",
			"kernel_launches", snap.KernelLaunches,
			"dma_ops", snap.DMAOpsH2D+snap.DMAOpsD2H,
			"mem_ops", snap.MemSetOps+snap.MemCopyOps,
			"timeouts", snap.Timeouts,
			"error_rate_pct", snap.ErrorRate,
		)
	}
	if err != nil {
		logger.Error("simulation error", "error", err)
		os.Exit(1)
	}
	if res.Timeout {
		fmt.Fprintln(os.Stderr, "gluon-sim: cycle budget exhausted, exiting")
		os.Exit(0)
	}
	logger.Info("client disconnected cleanly")
	os.Exit(0)
}

func dumpStacksOnSignal(logger *logging.Logger, ch <-chan os.Signal) {
	for range ch {
		logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
		buf := make([]byte, 1024*1024)
		n := runtime.Stack(buf, true)
		fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

		filename := fmt.Sprintf("gluon-sim-stacks-%d.txt", time.Now().Unix())
		if f, err := os.Create(filename); err == nil {
			fmt.Fprintf(f, "Goroutine stack dump at %s\nProcess ID: %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
			f.Write(buf[:n])
			fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
			pprof.Lookup("goroutine").WriteTo(f, 2)
			f.Close()
			logger.Info("stack trace written to file", "file", filename)
		}
	}
}
