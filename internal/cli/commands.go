package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zjrubin/philips-hue/internal/app"
)

const defaultDumpFile = "hue_api.json"

func newPairCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pair",
		Short: "Pair with a bridge and store its application key",
		Long: `Pair with the bridge given by --bridge, or the first bridge found on the
network, and store the application key in the credential store.

Press the link button on the bridge before or while running this command.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Press the link button on the bridge (waiting up to %s)\n",
				opts.cfg.Pairing.Timeout.Duration())

			cred, err := application.Pair(cmd.Context(), opts.cfg.Hue.Bridge)
			if err != nil {
				return err
			}

			if cred.BridgeID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Paired with bridge %s (%s)\n", cred.Host, cred.BridgeID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Paired with bridge %s\n", cred.Host)
			}
			return nil
		},
	}
}

func newDiscoverCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List bridges found on the local network",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			bridges, err := application.Discover(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Bridges:")
			for _, b := range bridges {
				fmt.Fprintf(out, "\t%s\t%s\t%s\n", b.Host, b.BridgeID, b.Source)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newDumpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [FILE]",
		Short: "Write the raw bridge datastore as JSON",
		Long: `Write the bridge's full datastore as indented JSON to FILE
(default ` + defaultDumpFile + `). Use "-" for standard output.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return &UsageError{Message: fmt.Sprintf("dump accepts at most one file, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultDumpFile
			if len(args) == 1 {
				path = args[0]
			}

			application, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			session, err := application.Session(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			if path == "-" {
				return session.Dump(cmd.Context(), cmd.OutOrStdout())
			}

			var buf bytes.Buffer
			if err := session.Dump(cmd.Context(), &buf); err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			log.Info().Str("file", path).Int("bytes", buf.Len()).Msg("Wrote bridge datastore")
			return nil
		},
	}
}

func newBridgesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bridges",
		Short: "List paired bridges in the credential store",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			creds, err := application.Credentials().List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Paired bridges:")
			for _, c := range creds {
				fmt.Fprintf(out, "\t%s\t%s\t%s\n", c.Host, c.BridgeID, c.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newForgetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "forget HOST",
		Short: "Remove a bridge's stored application key",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &UsageError{Message: "forget requires exactly one bridge host"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			removed, err := application.Credentials().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return errors.New("no stored credential for " + args[0])
			}
			log.Info().Str("host", args[0]).Msg("Removed credential")
			return nil
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &UsageError{Message: fmt.Sprintf("%s takes no arguments", cmd.CommandPath())}
	}
	return nil
}
