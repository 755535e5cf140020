package core

import (
	"testing"
	"time"

	"guildplayer/internal/i18n"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.App.Language != i18n.DefaultLanguage {
		t.Errorf("Expected default language to be %s, got %s", i18n.DefaultLanguage, config.App.Language)
	}

	if config.App.MinTrackLength != 5*time.Second {
		t.Errorf("Expected minimum track length 5s, got %v", config.App.MinTrackLength)
	}

	if config.App.FarewellTTL != 1600*time.Second {
		t.Errorf("Expected farewell TTL 1600s, got %v", config.App.FarewellTTL)
	}

	if config.Discord.Token != "" {
		t.Error("Expected Discord token to be empty (requiring explicit configuration)")
	}

	if !config.Server.Enabled {
		t.Error("Expected metrics server to be enabled by default")
	}
}

func TestLanguageConfiguration(t *testing.T) {
	config := DefaultConfig()

	for _, lang := range i18n.GetSupportedLanguages() {
		config.App.Language = lang
		localizer := i18n.NewLocalizer(config.App.Language)
		if localizer == nil {
			t.Errorf("Failed to create localizer for language %s", lang)
			continue
		}

		if message := localizer.T("notice.queue_empty"); message == "" || message == "notice.queue_empty" {
			t.Errorf("Missing message for key 'notice.queue_empty' in language %s", lang)
		}
	}
}

func TestConfigConstants(t *testing.T) {
	if DefaultShortNoticeTTL >= DefaultMoveNoticeTTL {
		t.Error("Move notices should stay visible longer than short notices")
	}

	if DefaultMoveNoticeTTL >= DefaultFarewellTTL {
		t.Error("Farewell should stay visible longer than move notices")
	}

	if DefaultReconnectMaxAttempts != 1 {
		t.Error("DefaultReconnectMaxAttempts should make exactly one attempt")
	}

	if DefaultEventTimeout <= 0 {
		t.Error("DefaultEventTimeout should be positive")
	}
}

func TestDefaultStyle(t *testing.T) {
	buttons := DefaultConfig().Style.Buttons
	for name, id := range map[string]string{
		"previous":     buttons.Previous,
		"pause_resume": buttons.PauseResume,
		"stop":         buttons.Stop,
		"settings":     buttons.Settings,
		"skip":         buttons.Skip,
	} {
		if id == "" {
			t.Errorf("Expected emoji ID for %s button", name)
		}
	}
}
