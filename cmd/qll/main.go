package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/qll/pkg/credentials"
	"github.com/tzrikka/qll/pkg/etcd"
	"github.com/tzrikka/qll/pkg/http"
	"github.com/tzrikka/qll/pkg/logger"
	"github.com/tzrikka/qll/pkg/state"
	"github.com/tzrikka/qll/pkg/thrippy"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "qll"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	cmd := &cli.Command{
		Name:    "qll",
		Usage:   "Receive Slack OAuth callbacks, interactions, and slash commands over HTTP webhooks",
		Version: buildInfo.Main.Version,
		Flags:   flags(configFilePath),
		Action:  http.Start,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	fs := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "simple setup, but unsafe for production",
		},
	}
	fs = append(fs, logger.Flags(configFilePath)...)
	fs = append(fs, http.Flags(configFilePath)...)
	fs = append(fs, credentials.Flags(configFilePath)...)
	fs = append(fs, thrippy.Flags(configFilePath)...)
	fs = append(fs, state.Flags(configFilePath)...)
	fs = append(fs, etcd.Flags(configFilePath)...)
	return fs
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}
