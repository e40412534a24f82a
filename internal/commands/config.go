package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fastupload/tgupbench/internal/ui"
	"github.com/fastupload/tgupbench/pkg/config"
)

// NewConfigCmd shows the configuration a run would use
func NewConfigCmd() *cobra.Command {
	var describe bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration read from the environment and the .env file.
Secrets are masked.

Example:
  tgupbench config
  tgupbench config --describe
  tgupbench config --env-file ./bench.env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.GetConfigFromContext(cmd)
			if err != nil {
				return ui.NewConfigurationError(err)
			}

			return writeConfig(cmd.OutOrStdout(), cfg, describe)
		},
	}

	cmd.Flags().BoolVar(&describe, "describe", false, "Explain each variable")

	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config, describe bool) error {
	apiID := ""
	if cfg.APIID > 0 {
		apiID = strconv.Itoa(cfg.APIID)
	}

	proxy, err := cfg.ResolveProxy(false)
	if err != nil {
		return ui.NewConfigurationError(err)
	}
	proxyDisplay := "none"
	if proxy != nil {
		proxyDisplay = proxy.String()
	}

	items := []struct {
		key   string
		value string
	}{
		{config.EnvAPIID, apiID},
		{config.EnvAPIHash, mask(cfg.APIHash)},
		{config.EnvSession, cfg.SessionPath},
		{config.EnvPhone, cfg.Phone},
		{config.EnvPassword, lo.Ternary(cfg.Password != "", "********", "")},
		{config.EnvTarget, cfg.Target},
		{config.EnvDownloadDir, cfg.DownloadDir},
		{config.EnvProxy, proxyDisplay},
		{config.EnvLogLevel, cfg.LogLevel},
		{config.EnvSkipVersionCheck, strconv.FormatBool(cfg.SkipVersionCheck)},
		{config.EnvTelemetryDisabled, strconv.FormatBool(!cfg.IsTelemetryEnabled())},
	}

	for _, item := range items {
		value := item.value
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "%s: %s\n", item.key, value)
		if describe {
			if desc := config.GetEnvKeyDescription(item.key); desc != "" {
				fmt.Fprintf(w, "  %s\n", desc)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "\nnot ready to run: %s\n", err)
	}

	return nil
}

// mask keeps the first and last characters of long secrets
func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "********"
	default:
		return secret[:2] + "****" + secret[len(secret)-2:]
	}
}
