package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/agent"
	"github.com/danielpatrickdp/gesture-agent/internal/api"
	"github.com/danielpatrickdp/gesture-agent/internal/config"
	"github.com/danielpatrickdp/gesture-agent/internal/logging"
	"github.com/danielpatrickdp/gesture-agent/internal/mcp"
	"github.com/danielpatrickdp/gesture-agent/internal/midi"
	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/osc"
	"github.com/danielpatrickdp/gesture-agent/internal/playback"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
	"github.com/danielpatrickdp/gesture-agent/internal/source"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
	_ "github.com/danielpatrickdp/gesture-agent/internal/store/duckdb"
)

// #region main
func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("controller stopped", zap.Error(err))
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var st *store.Store
	var opts []session.Option
	if cfg.DBPath != "" {
		var err error
		st, err = store.NewStore(cfg.DBDriver, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		sess, err := st.CreateSession(cfg.Label)
		if err != nil {
			st.Close()
			return fmt.Errorf("create session: %w", err)
		}
		opts = append(opts, session.WithStore(st, sess.ID))
	}

	primary, mirror, err := openSinks(cfg, logger)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	if mirror != nil {
		opts = append(opts, session.WithMirror(mirror))
	}
	if cfg.Seed != 0 {
		opts = append(opts, session.WithAgentOptions(agent.WithSeed(cfg.Seed)))
	}
	opts = append(opts, session.WithLogger(logger))

	sess, err := session.New(cfg.Session(), primary, opts...)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	var phrases api.PhraseLog
	if st != nil {
		phrases = st
	}
	tools := mcp.NewServer(sess, phrases, logger.Named("mcp"))
	if cfg.HTTPAddr != "" {
		srv := api.NewServer(sess, phrases, cfg.HTTPAddr, logger.Named("http"))
		srv.AddMCPServer(tools.GetMCPServer())
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error("http server", zap.Error(err))
			}
		}()
	}
	if cfg.MCPStdio {
		go func() {
			if err := tools.Serve(); err != nil {
				logger.Error("mcp stdio", zap.Error(err))
			}
		}()
	}

	in, closeIn, err := openInput(cfg.Input)
	if err != nil {
		sess.Close(context.Background())
		return err
	}
	defer closeIn()

	logger.Info("controller ready",
		zap.String("session", sess.ID()),
		zap.String("osc", fmt.Sprintf("%s:%d", cfg.OSCHost, cfg.OSCPort)),
		zap.Int("mirror_port", cfg.OSC().MirrorPort),
		zap.String("midi_out", cfg.MIDIOut),
		zap.String("http", cfg.HTTPAddr),
		zap.Float64("hotness", cfg.Hotness),
	)

	last, streamErr := source.Stream(ctx, in, func(s note.Sample) error {
		if err := sess.Feed(ctx, s); err != nil {
			logger.Warn("feed", zap.Float64("t", s.T), zap.Error(err))
		}
		return nil
	})
	if streamErr != nil && ctx.Err() == nil {
		logger.Error("sample stream", zap.Error(streamErr))
	}

	notes, err := sess.Finalize(last)
	if err != nil {
		logger.Error("finalize", zap.Error(err))
	}
	status := sess.Status()
	logger.Info("session finished",
		zap.Int("human_notes", len(notes)),
		zap.Int("ai_notes", status.AINotes),
		zap.Int("phrases_played", status.PhrasesPlayed),
		zap.Int("phrases_dropped", status.PhrasesDropped),
	)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if ctx.Err() != nil {
		// interrupted: stop playback right away
		cancel()
	}
	if err := sess.Close(closeCtx); err != nil && closeCtx.Err() == nil {
		return fmt.Errorf("close session: %w", err)
	}
	if streamErr != nil && ctx.Err() == nil {
		return streamErr
	}
	return nil
}

// #endregion run

// #region helpers
func openSinks(cfg config.Config, logger *zap.Logger) (playback.Sink, playback.Sink, error) {
	primary, oscMirror := osc.NewSinks(cfg.OSC(), osc.WithLogger(logger.Named("osc")))
	if cfg.MIDIOut != "" {
		mc := midi.DefaultConfig()
		mc.Port = cfg.MIDIOut
		m, err := midi.Open(mc, midi.WithLogger(logger.Named("midi")))
		if err != nil {
			return nil, nil, err
		}
		return primary, m, nil
	}
	if oscMirror == nil {
		return primary, nil, nil
	}
	return primary, oscMirror, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// #endregion helpers
