package postgres_test

import (
	"context"
	"fmt"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/session/postgres"
	"github.com/papercomputeco/persona/pkg/session/sessiontest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("PERSONA_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("PERSONA_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Store", func() {
	sessiontest.ItBehavesLikeAStore(func() session.Store {
		ctx := context.Background()
		s, err := postgres.NewStore(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		// Clean all sessions before each test for isolation.
		Expect(s.Reset(ctx)).To(Succeed())
		return s
	})

	It("returns an error for an unreachable server", func() {
		connStr()
		_, err := postgres.NewStore(context.Background(), "host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
		Expect(err).To(HaveOccurred())
		fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
	})
})
