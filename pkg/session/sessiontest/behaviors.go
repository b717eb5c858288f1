// Package sessiontest holds the behavioural checks every session.Store
// backend must pass.
package sessiontest

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
)

// ItBehavesLikeAStore registers the shared Store specs. newStore is called
// once per test and must return an empty store.
func ItBehavesLikeAStore(newStore func() session.Store) {
	var (
		ctx   context.Context
		store session.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()
		DeferCleanup(func() { _ = store.Close() })
	})

	It("returns an empty transcript for an unseen session", func() {
		s, err := store.GetOrCreate(ctx, "unseen")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ID).To(Equal("unseen"))
		Expect(s.Turns).To(BeEmpty())
	})

	It("keeps turns in append order", func() {
		_, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Append(ctx, "abc",
			session.NewTurn(llm.RoleUser, "Hi"),
			session.NewTurn(llm.RoleAssistant, "Hello!"),
		)).To(Succeed())
		Expect(store.Append(ctx, "abc",
			session.NewTurn(llm.RoleUser, "How much?"),
			session.NewTurn(llm.RoleAssistant, "Ten."),
		)).To(Succeed())

		s, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(contents(s)).To(Equal([]string{"user:Hi", "assistant:Hello!", "user:How much?", "assistant:Ten."}))
	})

	It("rejects appends to a session that was never created", func() {
		err := store.Append(ctx, "ghost", session.NewTurn(llm.RoleUser, "boo"))
		Expect(err).To(MatchError(session.ErrSessionNotFound))
	})

	It("treats an empty append as a no-op", func() {
		_, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Append(ctx, "abc")).To(Succeed())

		s, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Turns).To(BeEmpty())
	})

	It("isolates sessions from each other", func() {
		for _, id := range []string{"a", "b"} {
			_, err := store.GetOrCreate(ctx, id)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(store.Append(ctx, "a", session.NewTurn(llm.RoleUser, "only a"))).To(Succeed())

		b, err := store.GetOrCreate(ctx, "b")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Turns).To(BeEmpty())
	})

	It("returns snapshots the caller cannot use to mutate the store", func() {
		_, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Append(ctx, "abc", session.NewTurn(llm.RoleUser, "Hi"))).To(Succeed())

		s, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		s.Turns[0].Content = "tampered"
		s.Turns = append(s.Turns, session.NewTurn(llm.RoleUser, "extra"))

		again, err := store.GetOrCreate(ctx, "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(contents(again)).To(Equal([]string{"user:Hi"}))
	})

	It("is safe for concurrent appends across sessions", func() {
		const sessions, turns = 8, 10

		var wg sync.WaitGroup
		for i := range sessions {
			id := fmt.Sprintf("s-%d", i)
			_, err := store.GetOrCreate(ctx, id)
			Expect(err).NotTo(HaveOccurred())

			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for j := range turns {
					Expect(store.Append(ctx, id, session.NewTurn(llm.RoleUser, fmt.Sprintf("%s-%d", id, j)))).To(Succeed())
				}
			}()
		}
		wg.Wait()

		for i := range sessions {
			id := fmt.Sprintf("s-%d", i)
			s, err := store.GetOrCreate(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Turns).To(HaveLen(turns))
			for j, t := range s.Turns {
				Expect(t.Content).To(Equal(fmt.Sprintf("%s-%d", id, j)))
			}
		}
	})

	It("fails after Close", func() {
		Expect(store.Close()).To(Succeed())
		_, err := store.GetOrCreate(ctx, "abc")
		Expect(err).To(HaveOccurred())
	})
}

func contents(s *session.Session) []string {
	out := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		out = append(out, string(t.Role)+":"+t.Content)
	}
	return out
}
