package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"guildplayer/internal/core"
	"guildplayer/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and edit stored guild settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every guild with stored settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.SettingsStore) error {
			all, err := s.ListSettings(ctx)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), all...)
			return nil
		})
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <guild-id>",
	Short: "Show the settings of one guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.SettingsStore) error {
			settings, err := s.FindSettings(ctx, args[0])
			if err != nil {
				return err
			}
			if settings == nil {
				return fmt.Errorf("no settings stored for guild %s", args[0])
			}
			printSettings(cmd.OutOrStdout(), settings)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <guild-id>",
	Short: "Create or update the settings of one guild",
	Long: `Create or update the settings of one guild. Only the given flags change;
everything else keeps its stored value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.SettingsStore) error {
			settings, err := s.FindSettings(ctx, args[0])
			if err != nil {
				return err
			}
			if settings == nil {
				settings = &core.GuildSettings{GuildID: args[0]}
			}

			if err := applySettingsFlags(cmd, settings); err != nil {
				return err
			}
			if err := s.SaveSettings(ctx, settings); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), settings)
			return nil
		})
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete <guild-id>",
	Short: "Remove the settings of one guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, s *store.SettingsStore) error {
			if err := s.DeleteSettings(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted settings of guild %s\n", args[0])
			return nil
		})
	},
}

func init() {
	addSettingsFlags(settingsSetCmd)
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsDeleteCmd)
}

func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("autoplay", false, "Continue with related tracks when the queue runs out")
	cmd.Flags().Bool("persistent", false, "Keep the session alive 24/7")
	cmd.Flags().String("voice-channel", "", "Voice channel of the 24/7 session")
	cmd.Flags().String("text-channel", "", "Text channel of the 24/7 session")
}

func applySettingsFlags(cmd *cobra.Command, settings *core.GuildSettings) error {
	flags := cmd.Flags()

	if flags.Changed("autoplay") {
		v, err := flags.GetBool("autoplay")
		if err != nil {
			return err
		}
		settings.AutoplayEnabled = v
	}
	if flags.Changed("persistent") {
		v, err := flags.GetBool("persistent")
		if err != nil {
			return err
		}
		settings.Persistent.Enabled = v
	}
	if flags.Changed("voice-channel") {
		v, err := flags.GetString("voice-channel")
		if err != nil {
			return err
		}
		settings.Persistent.VoiceChannelID = v
	}
	if flags.Changed("text-channel") {
		v, err := flags.GetString("text-channel")
		if err != nil {
			return err
		}
		settings.Persistent.TextChannelID = v
	}

	if settings.Persistent.Enabled &&
		(settings.Persistent.VoiceChannelID == "" || settings.Persistent.TextChannelID == "") {
		return core.ErrIncompleteSessionConfig
	}
	return nil
}

func withStore(ctx context.Context, fn func(context.Context, *store.SettingsStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := store.Open(ctx, config.Store, logger.Named("store"))
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return fn(ctx, s)
}

func printSettings(out io.Writer, all ...*core.GuildSettings) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GUILD\tAUTOPLAY\t24/7\tVOICE\tTEXT\tUPDATED")
	for _, s := range all {
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%s\t%s\n",
			s.GuildID, s.AutoplayEnabled, s.Persistent.Enabled,
			orDash(s.Persistent.VoiceChannelID), orDash(s.Persistent.TextChannelID), updated)
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
