// Command survey plans a waypoint route over the targets in a targets file
// and prints it as fixed-width text, or as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-logbook/internal/survey"
	"github.com/urfave/cli/v3"
)

func newCommand(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "survey",
		Usage: "Generate a survey waypoint route from a targets file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "targets",
				Aliases:  []string{"t"},
				Usage:    "Targets file, one \"lat lon type id [tracks spacing bearing]\" per line; - reads stdin",
				Required: true,
				Sources:  cli.EnvVars("SURVEY_TARGETS"),
			},
			&cli.BoolFlag{
				Name:  "box-leadins",
				Usage: "Use box lead-ins when the turn onto the first track is sharp",
			},
			&cli.FloatFlag{
				Name:  "box-threshold",
				Usage: "Turn angle in degrees above which a box lead-in is used",
				Value: 45,
			},
			&cli.FloatFlag{
				Name:  "speed",
				Usage: "Survey speed in knots",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "track-length",
				Usage: "Track length in metres",
				Value: 200,
			},
			&cli.BoolFlag{
				Name:  "port-turns",
				Usage: "Turn to port between tracks",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print waypoints as JSON instead of text",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(cmd, in, out)
		},
	}
}

func run(cmd *cli.Command, in io.Reader, out io.Writer) error {
	if cmd.Float("speed") <= 0 {
		return fmt.Errorf("speed must be positive, got %v", cmd.Float("speed"))
	}
	if cmd.Float("track-length") <= 0 {
		return fmt.Errorf("track length must be positive, got %v", cmd.Float("track-length"))
	}

	text, err := readTargets(cmd.String("targets"), in)
	if err != nil {
		return err
	}
	targets := survey.ParseTargets(text)
	if len(targets) == 0 {
		return fmt.Errorf("no targets in %s", cmd.String("targets"))
	}

	route := survey.GenerateSurveyRoute(targets, survey.Options{
		UseBoxLeadins:           cmd.Bool("box-leadins"),
		BoxLeadinAngleThreshold: cmd.Float("box-threshold"),
		TrackLength:             cmd.Float("track-length"),
		PortTurns:               cmd.Bool("port-turns"),
		SpeedKnots:              cmd.Float("speed"),
	})
	log.WithFields(log.Fields{"targets": len(targets), "waypoints": len(route.Waypoints)}).Debug("route generated")

	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(route.Waypoints)
	}
	for _, line := range route.Output {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func readTargets(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read targets from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read targets: %w", err)
	}
	return string(data), nil
}

func main() {
	log.SetOutput(os.Stderr)
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	if err := newCommand(os.Stdin, os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Error("survey failed")
		os.Exit(1)
	}
}
