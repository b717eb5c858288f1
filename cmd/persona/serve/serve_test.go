package servecmder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/config"
	"github.com/papercomputeco/persona/pkg/eventstream/kafka"
	"github.com/papercomputeco/persona/pkg/eventstream/nop"
	"github.com/papercomputeco/persona/pkg/logger"
	"github.com/papercomputeco/persona/pkg/persona"
	"github.com/papercomputeco/persona/pkg/session/inmemory"
	"github.com/papercomputeco/persona/pkg/session/redis"
	"github.com/papercomputeco/persona/pkg/session/sqlite"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the serve flags with config defaults", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))

		listen := cmd.Flags().Lookup("listen")
		Expect(listen).NotTo(BeNil())
		Expect(listen.Shorthand).To(Equal("l"))
		Expect(listen.DefValue).To(Equal(config.NewDefaultConfig().Server.Listen))

		for _, name := range []string{"provider", "model", "session-store", "sqlite", "redis", "events", "telemetry", "log-json", "log-file", "debug-routes"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

var _ = Describe("component construction", func() {
	var (
		ctx context.Context
		log = logger.Nop()
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("newSessionStore", func() {
		It("defaults to memory", func() {
			store, err := newSessionStore(ctx, config.SessionConfig{}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(store).To(BeAssignableToTypeOf(&inmemory.Store{}))
		})

		It("opens sqlite", func() {
			path := filepath.Join(GinkgoT().TempDir(), "persona.db")
			store, err := newSessionStore(ctx, config.SessionConfig{Store: "sqlite", SQLitePath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(store).To(BeAssignableToTypeOf(&sqlite.Store{}))
			Expect(store.Close()).To(Succeed())
		})

		It("requires a sqlite path", func() {
			_, err := newSessionStore(ctx, config.SessionConfig{Store: "sqlite"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("requires a postgres dsn", func() {
			_, err := newSessionStore(ctx, config.SessionConfig{Store: "postgres"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("connects to redis with a TTL", func() {
			mr := miniredis.RunT(GinkgoT())
			store, err := newSessionStore(ctx, config.SessionConfig{Store: "redis", RedisAddr: mr.Addr(), RedisTTL: "1h"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(store).To(BeAssignableToTypeOf(&redis.Store{}))
			Expect(store.Close()).To(Succeed())
		})

		It("rejects a bad redis TTL", func() {
			_, err := newSessionStore(ctx, config.SessionConfig{Store: "redis", RedisAddr: "localhost:6379", RedisTTL: "soon"}, log)
			Expect(err).To(MatchError(ContainSubstring("session.redis_ttl")))
		})

		It("rejects unknown stores", func() {
			_, err := newSessionStore(ctx, config.SessionConfig{Store: "etcd"}, log)
			Expect(err).To(MatchError(ContainSubstring("unknown session store")))
		})
	})

	Describe("newPersonaSource", func() {
		It("uses the built-in persona by default", func() {
			src, err := newPersonaSource(ctx, config.PersonaConfig{}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(src.Prompt()).To(Equal(persona.Default().Prompt()))
		})

		It("loads a prompt file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "prompt.md")
			Expect(os.WriteFile(path, []byte("Be brief."), 0o600)).To(Succeed())

			wctx, cancel := context.WithCancel(ctx)
			defer cancel()

			src, err := newPersonaSource(wctx, config.PersonaConfig{PromptFile: path}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(src.Prompt()).To(Equal("Be brief."))
		})

		It("fails on a missing prompt file", func() {
			_, err := newPersonaSource(ctx, config.PersonaConfig{PromptFile: "/does/not/exist.md"}, log)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newCompleter", func() {
		var configDir string

		BeforeEach(func() {
			configDir = GinkgoT().TempDir()
			GinkgoT().Setenv("PERSONA_MODEL_API_KEY", "")
			GinkgoT().Setenv("OPENROUTER_API_KEY", "")
		})

		It("returns nil without a credential", func() {
			c, err := newCompleter(ctx, config.NewDefaultConfig().Model, configDir, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(BeNil())
		})

		It("builds a completer when a key is in the environment", func() {
			GinkgoT().Setenv("OPENROUTER_API_KEY", "sk-or-test")
			c, err := newCompleter(ctx, config.NewDefaultConfig().Model, configDir, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).NotTo(BeNil())
		})

		It("rejects unknown providers once a key is present", func() {
			GinkgoT().Setenv("PERSONA_MODEL_API_KEY", "k")
			cfg := config.NewDefaultConfig().Model
			cfg.Provider = "mystery"
			_, err := newCompleter(ctx, cfg, configDir, log)
			Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
		})
	})

	Describe("baseURLFor", func() {
		It("keeps the default for openrouter", func() {
			cfg := config.NewDefaultConfig().Model
			Expect(baseURLFor(cfg)).To(Equal(cfg.BaseURL))
		})

		It("drops the openrouter default for other providers", func() {
			cfg := config.NewDefaultConfig().Model
			cfg.Provider = "openai"
			Expect(baseURLFor(cfg)).To(BeEmpty())
		})

		It("keeps an explicit base URL", func() {
			cfg := config.NewDefaultConfig().Model
			cfg.Provider = "openai"
			cfg.BaseURL = "http://localhost:11434/v1"
			Expect(baseURLFor(cfg)).To(Equal("http://localhost:11434/v1"))
		})
	})

	Describe("newPublisher", func() {
		It("defaults to the no-op publisher", func() {
			pub, err := newPublisher(config.EventsConfig{Provider: "none"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a kafka publisher", func() {
			pub, err := newPublisher(config.EventsConfig{Provider: "kafka", KafkaBrokers: "localhost:9092", KafkaTopic: "persona.turns"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
			Expect(pub.Close()).To(Succeed())
		})

		It("rejects unknown providers", func() {
			_, err := newPublisher(config.EventsConfig{Provider: "nats"}, log)
			Expect(err).To(HaveOccurred())
		})
	})
})
