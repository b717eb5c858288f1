// Package personacmder
package personacmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/persona/cmd/persona/auth"
	chatcmder "github.com/papercomputeco/persona/cmd/persona/chat"
	configcmder "github.com/papercomputeco/persona/cmd/persona/config"
	servecmder "github.com/papercomputeco/persona/cmd/persona/serve"
	versioncmder "github.com/papercomputeco/persona/cmd/version"
)

const personaLongDesc string = `Persona is a chat backend that answers as a fixed persona.

It forwards each visitor message, with the persona prompt and the session's
history, to a remote model and returns the reply.

Run the server using:
  persona serve        Run the chat server
  persona chat         Chat with a running server
  persona auth         Store a model API key
  persona config       Manage persistent configuration`

const personaShortDesc string = "Persona - persona chat backend"

func NewPersonaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "persona",
		Short:        personaShortDesc,
		Long:         personaLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .persona/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
