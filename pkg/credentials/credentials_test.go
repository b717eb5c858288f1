package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewManager", func() {
		It("targets credentials.toml in the override directory", func() {
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
		})
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.openrouter]
api_key = "sk-or-test"
`
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("openrouter", credentials.ProviderCredential{APIKey: "sk-or-test"}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists credentials to disk with restricted permissions", func() {
			creds := &credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{
					"openai": {APIKey: "sk-test"},
				},
			}
			Expect(mgr.Save(creds)).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})
	})

	Describe("SetKey and GetKey", func() {
		It("overwrites an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("openai", "sk-new")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new"))
		})

		It("preserves other provider keys", func() {
			Expect(mgr.SetKey("openai", "sk-openai")).To(Succeed())
			Expect(mgr.SetKey("gemini", "gm-key")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-openai"))
		})

		It("returns empty string for unknown provider", func() {
			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("is a no-op for nonexistent provider", func() {
			Expect(mgr.RemoveKey("nonexistent")).To(Succeed())
		})
	})

	Describe("ListProviders", func() {
		It("returns stored providers in sorted order", func() {
			Expect(mgr.SetKey("openrouter", "sk-1")).To(Succeed())
			Expect(mgr.SetKey("gemini", "sk-2")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"gemini", "openrouter"}))
		})
	})

	Describe("Resolve", func() {
		BeforeEach(func() {
			GinkgoT().Setenv(credentials.ModelKeyEnvVar, "")
			GinkgoT().Setenv("OPENROUTER_API_KEY", "")
		})

		It("reports nothing when no key is configured", func() {
			key, src, err := mgr.Resolve("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
			Expect(src).To(Equal(credentials.SourceNone))
		})

		It("falls back to credentials.toml", func() {
			Expect(mgr.SetKey("openrouter", "sk-file")).To(Succeed())

			key, src, err := mgr.Resolve("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-file"))
			Expect(src).To(Equal(credentials.SourceFile))
		})

		It("prefers the provider env var over the file", func() {
			Expect(mgr.SetKey("openrouter", "sk-file")).To(Succeed())
			GinkgoT().Setenv("OPENROUTER_API_KEY", "sk-env")

			key, src, err := mgr.Resolve("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-env"))
			Expect(src).To(Equal(credentials.Source("env:OPENROUTER_API_KEY")))
		})

		It("prefers PERSONA_MODEL_API_KEY over everything", func() {
			Expect(mgr.SetKey("openrouter", "sk-file")).To(Succeed())
			GinkgoT().Setenv("OPENROUTER_API_KEY", "sk-env")
			GinkgoT().Setenv(credentials.ModelKeyEnvVar, "sk-override")

			key, src, err := mgr.Resolve("openrouter")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-override"))
			Expect(src).To(Equal(credentials.SourceOverride))
		})
	})
})

var _ = Describe("EnvVarForProvider", func() {
	It("maps each supported provider", func() {
		Expect(credentials.EnvVarForProvider("openrouter")).To(Equal("OPENROUTER_API_KEY"))
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("gemini")).To(Equal("GEMINI_API_KEY"))
	})

	It("returns empty string for unknown provider", func() {
		Expect(credentials.EnvVarForProvider("unknown")).To(BeEmpty())
	})
})

var _ = Describe("IsSupportedProvider", func() {
	It("accepts the supported providers", func() {
		for _, p := range credentials.SupportedProviders() {
			Expect(credentials.IsSupportedProvider(p)).To(BeTrue())
		}
	})

	It("rejects unsupported providers", func() {
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeFalse())
	})
})
