// Command replay-server streams a recorded ITCH feed to TCP subscribers
// with timestamp-accurate pacing.
//
// Usage:
//
//	replay-server [flags] <itch_file[.gz]>
//
// Example:
//
//	replay-server -port 9999 -speed 1.0 data/01302019.NASDAQ_ITCH50.gz
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/replay/pkg/config"
	"github.com/luxfi/replay/pkg/feed"
	"github.com/luxfi/replay/pkg/metrics"
	"github.com/luxfi/replay/pkg/replay"
	"github.com/luxfi/replay/pkg/wsfeed"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.SourcePath, "source", cfg.SourcePath, "ITCH feed file (.gz for gzip)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "TCP listen port for subscribers")
	flag.Float64Var(&cfg.Speed, "speed", cfg.Speed, "Replay speed multiplier (0 = no pacing)")
	flag.IntVar(&cfg.MaxSubscribers, "max-subscribers", cfg.MaxSubscribers, "Subscriber slot capacity")
	flag.IntVar(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort, "Prometheus port (0 = disabled)")
	flag.IntVar(&cfg.WSPort, "ws-port", cfg.WSPort, "WebSocket mirror port (0 = disabled)")
	flag.StringVar(&cfg.NATSURL, "nats", cfg.NATSURL, "NATS server URL (empty = disabled)")
	flag.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS publish subject")
	flag.StringVar(&cfg.ZMQEndpoint, "zmq", cfg.ZMQEndpoint, "ZeroMQ PUB endpoint (empty = disabled)")
	flag.Parse()

	// Positional source, matching the classic invocation.
	if args := flag.Args(); len(args) > 0 {
		cfg.SourcePath = args[0]
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}

	level, _ := log.ToLevel(cfg.LogLevel)
	logger := log.NewTestLogger(level).New("module", "replay-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mx *metrics.Metrics
	if cfg.MetricsPort > 0 {
		mx = metrics.New("replay")
		mx.StartServer(cfg.MetricsPort)
		go mx.CollectSystemMetrics(ctx)
	}

	reg := feed.NewRegistry(cfg.MaxSubscribers, cfg.WriteTimeout, logger, mx)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Error("listen failed", "port", cfg.Port, "error", err)
		os.Exit(1)
	}
	acc := feed.NewAcceptor(ln, reg, logger)
	acc.Start()
	logger.Info("listening for subscribers", "addr", ln.Addr().String())

	if cfg.WSPort > 0 {
		wsLn, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.WSPort))
		if err != nil {
			logger.Error("websocket listen failed", "port", cfg.WSPort, "error", err)
			os.Exit(1)
		}
		ws := wsfeed.NewServer(logger)
		go func() {
			if err := ws.Serve(wsLn); err != nil {
				logger.Error("websocket mirror failed", "error", err)
			}
		}()
		if _, err := reg.Register(ws.Transport()); err != nil {
			logger.Error("websocket mirror rejected", "error", err)
			os.Exit(1)
		}
	}

	if cfg.NATSURL != "" {
		sink, err := feed.NewNATSSink(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Error("nats sink failed", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		if _, err := reg.Register(sink); err != nil {
			logger.Error("nats sink rejected", "error", err)
			os.Exit(1)
		}
	}

	if cfg.ZMQEndpoint != "" {
		sink, err := feed.NewZMQSink(cfg.ZMQEndpoint)
		if err != nil {
			logger.Error("zmq sink failed", "endpoint", cfg.ZMQEndpoint, "error", err)
			os.Exit(1)
		}
		if _, err := reg.Register(sink); err != nil {
			logger.Error("zmq sink rejected", "error", err)
			os.Exit(1)
		}
	}

	// Give early subscribers a moment to connect before the feed starts.
	if cfg.StartupGrace > 0 {
		select {
		case <-time.After(cfg.StartupGrace):
		case <-ctx.Done():
		}
	}

	eng := replay.New(replay.Config{
		SourcePath: cfg.SourcePath,
		Speed:      cfg.Speed,
	}, reg, acc, logger, mx)

	sess, err := eng.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Replay complete: %d messages, %.2f MB in %v\n",
		sess.MessagesSent, float64(sess.BytesSent)/(1<<20), sess.Elapsed.Round(time.Millisecond))
	if sess.Truncated {
		fmt.Println("Note: source ended with an incomplete message")
	}
	if sess.UnknownTags > 0 {
		fmt.Printf("Note: %d unrecognized bytes skipped\n", sess.UnknownTags)
	}
}
