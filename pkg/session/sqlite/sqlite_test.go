package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/session/sessiontest"
	"github.com/papercomputeco/persona/pkg/session/sqlite"
)

var _ = Describe("Store", func() {
	sessiontest.ItBehavesLikeAStore(func() session.Store {
		s, err := sqlite.NewStore(context.Background(), filepath.Join(GinkgoT().TempDir(), "persona.db"))
		Expect(err).NotTo(HaveOccurred())
		return s
	})

	It("creates the database file", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

		s, err := sqlite.NewStore(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps transcripts across reopen", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

		s, err := sqlite.NewStore(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Append(ctx, "abc",
			session.NewTurn(llm.RoleUser, "Hi"),
			session.NewTurn(llm.RoleAssistant, "Hello!"),
		)).To(Succeed())
		Expect(s.Close()).To(Succeed())

		reopened, err := sqlite.NewStore(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		got, err := reopened.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Turns).To(HaveLen(2))
		Expect(got.Turns[0].Role).To(Equal(llm.RoleUser))
		Expect(got.Turns[1].Content).To(Equal("Hello!"))
		Expect(got.Turns[1].CreatedAt).NotTo(BeZero())
	})

	It("works with an in-memory database", func() {
		ctx := context.Background()
		s, err := sqlite.NewStore(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = s.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Append(ctx, "abc", session.NewTurn(llm.RoleUser, "Hi"))).To(Succeed())

		got, err := s.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Turns).To(HaveLen(1))
	})
})
