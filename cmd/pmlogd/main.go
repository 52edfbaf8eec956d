package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	server "pmlogd/internal/server/syslog"
	"pmlogd/pkg/config"
	"pmlogd/pkg/logger"
	"pmlogd/pkg/models"
	"pmlogd/pkg/storage"
)

var main_logger = logger.Main_logger

const (
	defaultConfPath  = "/etc/pmlogd.conf"
	defaultUDPAddr   = "127.0.0.1:514"
	defaultComponent = "pmlogd"
	defaultQueueSize = 1024
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("pmlogd", flag.ContinueOnError)
	confPath := flags.String("conf", defaultConfPath, "path of the routing configuration file")
	listenUDP := flags.String("listen-udp", defaultUDPAddr, "<ip>:<port> of the UDP syslog listener")
	listenUnix := flags.String("listen-unix", "", "path of the Unix datagram syslog socket")
	component := flags.String("component", defaultComponent, "component name used for the process lock")
	queueSize := flags.Int("queue", defaultQueueSize, "receive queue size")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	// Trailing <context>=<level> arguments override flush levels.
	overrides, err := parseOverrides(flags.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	locker := storage.NewPidFileLocker(storage.DefaultLocksDir, *component)
	if err := locker.Acquire(); err != nil {
		main_logger.Error("Failed to acquire process lock, exiting", "path", locker.Path(), "error", err)
		return 1
	}
	defer locker.Release()

	serverConf := &models.SyslogServerConfig{
		ReceiverConf: &models.ReceiverConfig{
			UDPAddr:  *listenUDP,
			UnixPath: *listenUnix,
		},
		QueueSize:      *queueSize,
		FlushOverrides: overrides,
	}

	srv, err := server.NewSyslogServer(serverConf, *confPath)
	if err != nil {
		main_logger.Error("Invalid server configuration", "error", err)
		return 1
	}

	if err := srv.Start(context.Background()); err != nil {
		main_logger.Error("Failed to start syslog server, exiting", "error", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			if err := srv.Reload(); err != nil {
				main_logger.Error("Reload failed", "error", err)
			}
			continue
		}
		main_logger.Info("Shutting down", "signal", sig.String())
		break
	}

	if err := srv.Stop(); err != nil {
		main_logger.Error("Error stopping syslog server", "error", err)
		return 1
	}
	return 0
}

// parseOverrides parses trailing <context>=<level> arguments.
func parseOverrides(args []string) (map[string]int, error) {
	if len(args) == 0 {
		return nil, nil
	}
	overrides := make(map[string]int, len(args))
	for _, arg := range args {
		key, val, ok := config.ParseKeyValue(arg)
		if !ok {
			return nil, fmt.Errorf("expected <context>=<level> argument, got %q", arg)
		}
		level, ok := config.ParseLevel(val)
		if !ok || level == config.Any {
			return nil, fmt.Errorf("unrecognized level %q for context %q", val, key)
		}
		overrides[key] = level
	}
	return overrides, nil
}
