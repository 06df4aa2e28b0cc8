package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvMailboxClientID       = "CONTADOR_MAILBOX_CLIENT_ID"
	EnvMailboxClientSecret   = "CONTADOR_MAILBOX_CLIENT_SECRET"
	EnvMailboxRedirectURL    = "CONTADOR_MAILBOX_REDIRECT_URL"
	EnvMailboxMaxMessages    = "CONTADOR_MAILBOX_MAX_MESSAGES"
	EnvMailboxProcessedLabel = "CONTADOR_MAILBOX_PROCESSED_LABEL"
	EnvMailboxScanWindow     = "CONTADOR_MAILBOX_SCAN_WINDOW"
)

// MailboxConfig holds the Gmail OAuth client and scan parameters.
type MailboxConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RedirectURL    string `toml:"redirect_url"`
	MaxMessages    int    `toml:"max_messages"`
	ProcessedLabel string `toml:"processed_label"`
	ScanWindow     string `toml:"scan_window"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MailboxConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *MailboxConfig) Merge(overlay *MailboxConfig) {
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.ClientSecret != "" {
		c.ClientSecret = overlay.ClientSecret
	}
	if overlay.RedirectURL != "" {
		c.RedirectURL = overlay.RedirectURL
	}
	if overlay.MaxMessages != 0 {
		c.MaxMessages = overlay.MaxMessages
	}
	if overlay.ProcessedLabel != "" {
		c.ProcessedLabel = overlay.ProcessedLabel
	}
	if overlay.ScanWindow != "" {
		c.ScanWindow = overlay.ScanWindow
	}
}

func (c *MailboxConfig) loadDefaults() {
	if c.MaxMessages == 0 {
		c.MaxMessages = 50
	}
	if c.ProcessedLabel == "" {
		c.ProcessedLabel = "Procesados"
	}
	if c.ScanWindow == "" {
		c.ScanWindow = "7d"
	}
}

func (c *MailboxConfig) loadEnv() {
	if v := os.Getenv(EnvMailboxClientID); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv(EnvMailboxClientSecret); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv(EnvMailboxRedirectURL); v != "" {
		c.RedirectURL = v
	}
	if v := os.Getenv(EnvMailboxMaxMessages); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxMessages = n
		}
	}
	if v := os.Getenv(EnvMailboxProcessedLabel); v != "" {
		c.ProcessedLabel = v
	}
	if v := os.Getenv(EnvMailboxScanWindow); v != "" {
		c.ScanWindow = v
	}
}

func (c *MailboxConfig) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("max_messages must be positive")
	}
	return nil
}
