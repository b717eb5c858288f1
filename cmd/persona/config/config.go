// Package configcmder provides the config command for managing persistent
// persona configuration stored in the .persona/ directory.
package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/persona/pkg/cliui"
	"github.com/papercomputeco/persona/pkg/config"
)

const configLongDesc string = `Manage persistent persona configuration.

Configuration is stored as config.toml in the .persona/ directory and provides
default values for command flags. CLI flags and PERSONA_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.debug_routes,
  model.provider, model.name, model.base_url, model.temperature,
  persona.prompt_file,
  session.store, session.sqlite_path, session.postgres_dsn,
  session.redis_addr, session.redis_ttl,
  events.provider, events.kafka_brokers, events.kafka_topic,
  telemetry.exporter, telemetry.otlp_endpoint,
  client.target

Use subcommands to get, set, or list configuration values:
  persona config set <key> <value>    Set a configuration value
  persona config get <key>            Get a configuration value
  persona config list                 List all configuration values

Examples:
  persona config set model.provider gemini
  persona config set session.store sqlite
  persona config get model.name
  persona config list`

const configShortDesc string = "Manage persistent persona configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func printConfigTarget(cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Printf("\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
