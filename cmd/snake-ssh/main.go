package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"
	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/highscore"
	"github.com/hoshinonyaruko/snake-web/termui"
)

// 所有 SSH 玩家共用一个最高分
var tracker *highscore.Tracker

func main() {
	conf := config.LoadConfig("./config.json")
	logger := config.NewLogger(os.Stderr, "ssh")

	store, closeStore, err := highscore.OpenStore(conf.Store, conf.DBPath, conf.ScoreFile)
	if err != nil {
		logger.Fatal("failed to open score store", "err", err)
	}
	defer closeStore()
	tracker = highscore.NewTracker(store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []ssh.Option{
		wish.WithAddress(conf.SSHAddr),
		wish.WithMiddleware(
			gameMiddleware(ctx, logger),
			activeterm.Middleware(),
			logging.Middleware(),
		),
		// Set TCP_NODELAY to reduce latency for game input
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	}
	if conf.HostKey != "" {
		opts = append(opts, wish.WithHostKeyPath(conf.HostKey))
	}

	s, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("failed to create server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting SSH server", "addr", conf.SSHAddr, "high_score", tracker.Best())
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down server")
	// 先结束所有对局
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}

// gameMiddleware runs one game per SSH session.
func gameMiddleware(serverCtx context.Context, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}
			go func() {
				for range winCh {
				}
			}()

			l := logger.With("user", sess.User(), "term", pty.Term)
			l.Info("new game session", "size", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

			ctx, cancel := context.WithCancel(sess.Context())
			defer cancel()
			stop := context.AfterFunc(serverCtx, cancel)
			defer stop()

			if err := termui.Play(ctx, sess, sess, tracker, l); err != nil {
				l.Error("game error", "err", err)
			}
			termui.ClearScreen(sess)
			fmt.Fprintf(sess, "Thanks for playing! High score: %d\r\n", tracker.Best())

			l.Info("session ended")
			next(sess)
		}
	}
}
