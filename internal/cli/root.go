// Package cli implements the hue command line: flag parsing, validation and
// dispatch to the application layer.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zjrubin/philips-hue/internal/action"
	"github.com/zjrubin/philips-hue/internal/app"
	"github.com/zjrubin/philips-hue/internal/config"
)

// options holds flag values shared by the root command and its subcommands.
type options struct {
	configPath string
	bridge     string
	logLevel   string

	room       string
	scene      string
	listRooms  bool
	listScenes bool

	cfg *config.Config
}

// Run executes the hue command line with args and returns the first error.
// Use ExitCode to turn the error into a process exit code.
func Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	if args == nil {
		args = []string{}
	}
	cmd := NewRootCommand(out, errOut)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the hue command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hue",
		Short: "Activate Philips Hue scenes by room and scene name",
		Long: `Activate a Philips Hue scene in a room, turn a room off, or list the
rooms and scenes known to the bridge.

The scene name "Off" turns every light in the room off.`,
		Example: `  hue --room Office --scene Relax
  hue -r Kitchen -s Off
  hue --list-rooms --list-scenes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &UsageError{Message: fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return opts.validateAction()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A bare "hue" only prints usage and must work without a valid config
			if cmd == cmd.Root() && !opts.hasAction() {
				return nil
			}
			return opts.loadConfig(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runRoot(cmd)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.room, "room", "r", "", "room (group) name")
	flags.StringVarP(&opts.scene, "scene", "s", "", `scene name to activate in --room; "Off" turns the room off`)
	flags.BoolVarP(&opts.listRooms, "list-rooms", "m", false, "list rooms")
	flags.BoolVarP(&opts.listScenes, "list-scenes", "l", false, "list scenes")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/hue/config.yaml)")
	persistent.StringVar(&opts.bridge, "bridge", "", "bridge address, overrides config")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newPairCommand(opts),
		newDiscoverCommand(opts),
		newDumpCommand(opts),
		newBridgesCommand(opts),
		newForgetCommand(opts),
	)

	return cmd
}

// validateAction requires --room and --scene to be given together.
func (o *options) validateAction() error {
	switch {
	case o.scene != "" && o.room == "":
		return &UsageError{Message: "--scene requires --room"}
	case o.room != "" && o.scene == "":
		return &UsageError{Message: "--room requires --scene"}
	}
	return nil
}

func (o *options) hasAction() bool {
	return o.listRooms || o.listScenes || o.scene != ""
}

func (o *options) loadConfig(logOut io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if o.bridge != "" && o.bridge != cfg.Hue.Bridge {
		// The configured key belongs to the configured bridge
		cfg.Hue.Bridge = o.bridge
		cfg.Hue.Token = ""
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(logOut, cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)
	log.Debug().Str("credentials", cfg.Credentials.Path).Msg("Configuration loaded")

	o.cfg = cfg
	return nil
}

func (o *options) runRoot(cmd *cobra.Command) error {
	if !o.hasAction() {
		return cmd.Help()
	}

	ctx := cmd.Context()
	application, err := app.New(o.cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	session, err := application.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	if o.listRooms {
		if err := session.ListRooms(ctx, out); err != nil {
			return err
		}
	}
	if o.listScenes {
		if err := session.ListScenes(ctx, out); err != nil {
			return err
		}
	}
	if o.scene != "" {
		return session.Activate(ctx, o.room, action.Parse(o.scene))
	}
	return nil
}
