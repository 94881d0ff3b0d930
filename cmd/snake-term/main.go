package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hoshinonyaruko/snake-web/config"
	"github.com/hoshinonyaruko/snake-web/highscore"
	"github.com/hoshinonyaruko/snake-web/termui"
	"golang.org/x/term"
)

func main() {
	conf := config.LoadConfig("./config.json")
	// 画面占满终端，日志写文件
	logFile, err := os.OpenFile("snake-term.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := config.NewLogger(logFile, "term")

	store, closeStore, err := highscore.OpenStore(conf.Store, conf.DBPath, conf.ScoreFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open score store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()
	tracker := highscore.NewTracker(store, logger)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fmt.Fprintln(os.Stderr, "snake-term needs an interactive terminal")
		os.Exit(1)
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	err = termui.Play(ctx, bufio.NewReader(os.Stdin), os.Stdout, tracker, logger)
	_ = term.Restore(fd, oldState)
	if err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("High score: %d\n", tracker.Best())
}
