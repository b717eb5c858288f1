package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/persona/cmd/persona/auth"
	"github.com/papercomputeco/persona/pkg/credentials"
)

// newAuthCmd mounts auth under a parent that owns --config-dir, as the root
// command does.
func newAuthCmd(configDir, stdin string, args ...string) (*cobra.Command, *bytes.Buffer) {
	root := &cobra.Command{Use: "persona"}
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(authcmder.NewAuthCmd())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"auth", "--config-dir", configDir}, args...))
	return root, out
}

var _ = Describe("auth command", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		GinkgoT().Setenv("OPENROUTER_API_KEY", "")
	})

	It("stores a piped key", func() {
		cmd, out := newAuthCmd(configDir, "sk-or-123\n", "openrouter")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Stored"))

		mgr, err := credentials.NewManager(configDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey("openrouter")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("sk-or-123"))
	})

	It("rejects unsupported providers", func() {
		cmd, _ := newAuthCmd(configDir, "k\n", "anthropic")
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("unsupported provider")))
	})

	It("rejects an empty key", func() {
		cmd, _ := newAuthCmd(configDir, "   \n", "openai")
		Expect(cmd.Execute()).To(MatchError("API key cannot be empty"))
	})

	It("requires a provider", func() {
		cmd, _ := newAuthCmd(configDir, "")
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("provider argument required")))
	})

	It("lists and removes stored providers", func() {
		cmd, _ := newAuthCmd(configDir, "g-key\n", "gemini")
		Expect(cmd.Execute()).To(Succeed())

		cmd, out := newAuthCmd(configDir, "", "--list")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("gemini"))

		cmd, _ = newAuthCmd(configDir, "", "--remove", "gemini")
		Expect(cmd.Execute()).To(Succeed())

		cmd, out = newAuthCmd(configDir, "", "--list")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No stored credentials"))
	})
})
