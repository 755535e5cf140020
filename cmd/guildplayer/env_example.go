package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"guildplayer/internal/i18n"
)

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# GuildPlayer Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SECTION>_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	generateDiscordSection(&content)
	generateStoreSection(&content, cmd)
	generatePlaybackSection(&content, cmd)
	generateReconnectSection(&content, cmd)
	generateServerSection(&content, cmd)
	generateLoggingSection(&content, cmd)

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func sectionHeader(content *strings.Builder, title string, flags ...string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	if len(flags) > 0 {
		fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(flags, ", --"))
	}
}

// writeSetting writes one variable with its flag default.
func writeSetting(content *strings.Builder, cmd *cobra.Command, flagName, description string) {
	def := getDefaultValueString(cmd, flagName)
	fmt.Fprintf(content, "%s=%s    # %s (default: %s)\n", flagToEnvVar(flagName), def, description, def)
}

func generateDiscordSection(content *strings.Builder) {
	sectionHeader(content, "Discord (Required)", "discord-token")
	fmt.Fprintf(content, "%s=your_bot_token_here    # Bot token from the Discord developer portal\n",
		flagToEnvVar("discord-token"))
	content.WriteString("\n")
}

func generateStoreSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Guild Settings Store", "store-path", "store-cache-size")
	writeSetting(content, cmd, "store-path", "SQLite database file")
	writeSetting(content, cmd, "store-cache-size", "Guild settings kept in memory")
	content.WriteString("\n")
}

func generatePlaybackSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Playback Sessions", "language", "min-track-length", "notice-limit-per-minute")

	langDefault := getDefaultValueString(cmd, "language")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	fmt.Fprintf(content, "%s=%s    # Bot language: %s (default: %s)\n",
		flagToEnvVar("language"), langDefault, supportedLangs, langDefault)

	writeSetting(content, cmd, "min-track-length", "Shorter tracks are skipped")
	writeSetting(content, cmd, "short-notice-ttl", "Lifetime of skip notices")
	writeSetting(content, cmd, "move-notice-ttl", "Lifetime of voice move notices")
	writeSetting(content, cmd, "farewell-ttl", "Lifetime of the farewell notice")
	writeSetting(content, cmd, "notice-limit-per-minute", "Notices per guild and kind per minute, 0=unlimited")
	writeSetting(content, cmd, "event-timeout", "Timeout for the chat calls of one event")
	writeSetting(content, cmd, "event-buffer-size", "Queued events per guild")
	writeSetting(content, cmd, "history-size", "Tracks remembered per guild for autoplay")
	writeSetting(content, cmd, "default-volume", "Volume of new sessions in percent")
	content.WriteString("\n")
}

func generateReconnectSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "24/7 Sessions", "reconnect-max-attempts", "reconnect-retry-delay")
	writeSetting(content, cmd, "reconnect-max-attempts", "Attempts to recreate a torn down session")
	writeSetting(content, cmd, "reconnect-retry-delay", "Delay between attempts")
	content.WriteString("\n")
}

func generateServerSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "HTTP Server Configuration", "server-enabled", "server-host", "server-port")
	writeSetting(content, cmd, "server-enabled", "Serve /healthz, /readyz and /metrics")
	writeSetting(content, cmd, "server-host", "Server bind address")
	writeSetting(content, cmd, "server-port", "Server port")
	content.WriteString("\n")
}

func generateLoggingSection(content *strings.Builder, cmd *cobra.Command) {
	sectionHeader(content, "Logging Configuration", "log-level", "log-format")
	writeSetting(content, cmd, "log-level", "Log level: debug, info, warn, error")
	writeSetting(content, cmd, "log-format", "Log format: json, text")
	content.WriteString("\n")
}
