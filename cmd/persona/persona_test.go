package personacmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	personacmder "github.com/papercomputeco/persona/cmd/persona"
)

var _ = Describe("NewPersonaCmd", func() {
	It("registers every subcommand", func() {
		cmd := personacmder.NewPersonaCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "chat", "auth", "config", "version"))
	})

	It("exposes global flags", func() {
		cmd := personacmder.NewPersonaCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
