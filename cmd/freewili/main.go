// Package main is the freewili command line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	freewili "github.com/Ytuf/freewili-go"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "freewili",
		Usage: "list and control Free-Wili boards",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.IntFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Value:   1,
				Usage:   "select a specific Free-Wili by index; the first Free-Wili is 1",
				EnvVars: []string{"FREEWILI_INDEX"},
			},
			&cli.IntFlag{
				Name:    "main-index",
				Aliases: []string{"mi"},
				Usage:   "select a Free-Wili by index and target its main processor",
			},
			&cli.IntFlag{
				Name:    "display-index",
				Aliases: []string{"di"},
				Usage:   "select a Free-Wili by index and target its display processor",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("freewili")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list all Free-Wili boards connected to the computer",
				Action: func(c *cli.Context) error {
					devices, err := freewili.FindAll(logger)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Found %d Free-Wili(s)\n", len(devices))
					for i, device := range devices {
						fmt.Fprintf(c.App.Writer, "%d. %s\n", i+1, device)
						for _, role := range []freewili.ProcessorRole{
							freewili.RoleBridge,
							freewili.RoleMain,
							freewili.RoleDisplay,
						} {
							proc, err := device.Processor(role)
							if err != nil {
								return err
							}
							fmt.Fprintf(c.App.Writer, "\t%s:\t%s\n", role, proc)
						}
					}
					return nil
				},
			},
			{
				Name:      "send",
				Usage:     "send a file to the Free-Wili",
				ArgsUsage: "<source_file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "name of the file on the Free-Wili; derived from the source file when omitted",
					},
					&cli.StringFlag{
						Name:    "processor",
						Aliases: []string{"p"},
						Usage:   "processor to send to (bridge, main, display); derived from the file type when omitted",
					},
					&cli.BoolFlag{
						Name:    "run",
						Aliases: []string{"w"},
						Usage:   "run the file as a script after sending",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("expected exactly one source file")
					}
					source := c.Args().First()
					role, err := parseRole(c.String("processor"))
					if err != nil {
						return err
					}
					device, implied, err := selectDevice(c, logger)
					if err != nil {
						return err
					}
					if role == freewili.RoleUnknown {
						role = implied
					}
					msg, err := device.SendFile(source, c.String("name"), role)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, msg)
					if c.Bool("run") {
						msg, err := device.RunScript(scriptName(c.String("name"), source), freewili.RoleUnknown)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, msg)
					}
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "get a file from the Free-Wili",
				ArgsUsage: "<source_file> <target_file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "processor",
						Aliases: []string{"p"},
						Usage:   "processor to fetch from (bridge, main, display); derived from the file type when omitted",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("expected a source file and a target file")
					}
					role, err := parseRole(c.String("processor"))
					if err != nil {
						return err
					}
					device, implied, err := selectDevice(c, logger)
					if err != nil {
						return err
					}
					if role == freewili.RoleUnknown {
						role = implied
					}
					data, err := device.GetFile(c.Args().Get(0), role)
					if err != nil {
						return err
					}
					return os.WriteFile(c.Args().Get(1), data, 0o644)
				},
			},
			{
				Name:      "run",
				Usage:     "run a script on the Free-Wili",
				ArgsUsage: "[script_name]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "name of the script on the Free-Wili, used when no argument is given",
					},
					&cli.StringFlag{
						Name:    "processor",
						Aliases: []string{"p"},
						Usage:   "processor to run on (default main)",
					},
				},
				Action: func(c *cli.Context) error {
					role, err := parseRole(c.String("processor"))
					if err != nil {
						return err
					}
					device, implied, err := selectDevice(c, logger)
					if err != nil {
						return err
					}
					if role == freewili.RoleUnknown {
						role = implied
					}
					msg, err := device.RunScript(runScriptName(c.Args().First(), c.String("name")), role)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, msg)
					return nil
				},
			},
			{
				Name:      "io",
				Usage:     "set an IO pin high or low",
				ArgsUsage: "<io_pin> <high|low>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "processor",
						Aliases: []string{"p"},
						Usage:   "processor to set IO on (default main)",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("expected an IO pin and high or low")
					}
					pin, err := strconv.Atoi(c.Args().Get(0))
					if err != nil {
						return errors.Wrapf(err, "bad IO pin %q", c.Args().Get(0))
					}
					level := c.Args().Get(1)
					if !strings.EqualFold(level, "high") && !strings.EqualFold(level, "low") {
						return errors.Errorf("bad IO level %q, expected high or low", level)
					}
					high := strings.EqualFold(level, "high")
					role, err := parseRole(c.String("processor"))
					if err != nil {
						return err
					}
					device, implied, err := selectDevice(c, logger)
					if err != nil {
						return err
					}
					if role == freewili.RoleUnknown {
						role = implied
					}
					fmt.Fprintf(c.App.Writer, "Setting IO pin %d to %s\n", pin, strings.ToLower(level))
					msg, err := device.SetIO(pin, high, role)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, msg)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// selectDevice discovers the attached boards and picks the one the 1-based
// selection flags name, along with the processor those flags imply.
// --main-index and --display-index both pick a device and a processor; a
// command's --processor flag still wins over the implied one.
func selectDevice(c *cli.Context, logger golog.Logger) (*freewili.Device, freewili.ProcessorRole, error) {
	index := c.Int("index")
	role := freewili.RoleUnknown
	switch {
	case c.IsSet("main-index"):
		index = c.Int("main-index")
		role = freewili.RoleMain
	case c.IsSet("display-index"):
		index = c.Int("display-index")
		role = freewili.RoleDisplay
	}
	devices, err := freewili.FindAll(logger)
	if err != nil {
		return nil, freewili.RoleUnknown, err
	}
	if index < 1 || index > len(devices) {
		return nil, freewili.RoleUnknown, errors.Errorf("device index %d out of range, %d device(s) found", index, len(devices))
	}
	return devices[index-1], role, nil
}

func parseRole(name string) (freewili.ProcessorRole, error) {
	switch strings.ToLower(name) {
	case "":
		return freewili.RoleUnknown, nil
	case "bridge", "ftdi":
		return freewili.RoleBridge, nil
	case "main":
		return freewili.RoleMain, nil
	case "display":
		return freewili.RoleDisplay, nil
	default:
		return freewili.RoleUnknown, errors.Errorf("unknown processor %q", name)
	}
}

// scriptName picks the script to run after a send: the explicit on-device
// name if one was given, else the base name of the sent file.
func scriptName(explicit, source string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Base(source)
}

// runScriptName picks the script for a standalone run: the argument if one
// was given, else the --name flag. An empty result is rejected downstream.
func runScriptName(arg, flag string) string {
	if arg != "" {
		return arg
	}
	return flag
}
