package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dsetareh/homeassistant-nanokvm/cmd"
)

func main() {
	app := &cli.App{
		Name:   "nanokvm-bridge",
		Usage:  "home assistant bridge for a sipeed nanokvm device",
		Action: cmd.BridgeCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "nanokvm-host",
				EnvVars:  []string{"NANOKVM_HOST"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "nanokvm-username",
				EnvVars: []string{"NANOKVM_USERNAME"},
				Value:   "admin",
			},
			&cli.StringFlag{
				Name:    "nanokvm-password",
				EnvVars: []string{"NANOKVM_PASSWORD"},
				Value:   "admin",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   15 * time.Second,
			},
			&cli.IntFlag{
				Name:    "failure-threshold",
				EnvVars: []string{"FAILURE_THRESHOLD"},
				Value:   3,
			},
			&cli.IntFlag{
				Name:    "command-queue-depth",
				EnvVars: []string{"COMMAND_QUEUE_DEPTH"},
				Value:   8,
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:    "api-username",
				EnvVars: []string{"API_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "api-password",
				EnvVars: []string{"API_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "api-signing-key",
				EnvVars: []string{"API_SIGNING_KEY"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
