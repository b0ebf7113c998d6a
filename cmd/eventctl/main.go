// Команда eventctl обслуживает события витрины в Kafka:
//
//	eventctl replay     — повторно публикует сообщения из DLQ (по умолчанию dry-run);
//	eventctl invalidate — публикует событие каталога, по которому все инстансы сбрасывают кэш.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
)

const usage = "usage: eventctl <replay|invalidate> [flags]"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	if len(os.Args) < 2 {
		fail(usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "replay":
		cfg, err := parseReplayConfig(args, os.Getenv)
		if err != nil {
			fail("%v", err)
		}
		if err := runReplay(ctx, cfg); err != nil {
			fail("dlq replay failed: %v", err)
		}
	case "invalidate":
		cfg, err := parseInvalidateConfig(args, os.Getenv)
		if err != nil {
			fail("%v", err)
		}
		if err := runInvalidate(cfg); err != nil {
			fail("catalog invalidation failed: %v", err)
		}
	default:
		fail("unknown command %q\n%s", os.Args[1], usage)
	}
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
