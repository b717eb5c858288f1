package sqldriver_test

import (
	"context"
	"database/sql"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/session/sqldriver"
)

var _ = Describe("Driver", func() {
	var (
		ctx context.Context
		db  *sql.DB
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = sql.Open("sqlite3", filepath.Join(GinkgoT().TempDir(), "driver.db")+"?_fk=1")
		Expect(err).NotTo(HaveOccurred())
		db.SetMaxOpenConns(1)
	})

	It("migrates idempotently", func() {
		first, err := sqldriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
		Expect(err).NotTo(HaveOccurred())
		_, err = first.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())

		second, err := sqldriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		Expect(second.Append(ctx, "abc", session.NewTurn(llm.RoleUser, "Hi"))).To(Succeed())
	})

	It("clears all data on Reset", func() {
		d, err := sqldriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		_, err = d.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Append(ctx, "abc", session.NewTurn(llm.RoleUser, "Hi"))).To(Succeed())

		Expect(d.Reset(ctx)).To(Succeed())
		Expect(d.Append(ctx, "abc", session.NewTurn(llm.RoleUser, "again"))).To(MatchError(session.ErrSessionNotFound))
	})

	It("leaves the transcript untouched when an append targets a missing session", func() {
		d, err := sqldriver.New(ctx, entsql.OpenDB(dialect.SQLite, db))
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		Expect(d.Append(ctx, "ghost", session.NewTurn(llm.RoleUser, "Hi"))).To(MatchError(session.ErrSessionNotFound))

		s, err := d.GetOrCreate(ctx, "ghost")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Turns).To(BeEmpty())
	})
})
