package inmemory_test

import (
	"context"
	"unsafe"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/session/inmemory"
	"github.com/papercomputeco/persona/pkg/session/sessiontest"
)

var _ = Describe("Store", func() {
	sessiontest.ItBehavesLikeAStore(func() session.Store {
		return inmemory.NewStore()
	})

	It("creates sessions lazily", func() {
		s := inmemory.NewStore()
		Expect(s.Len()).To(Equal(0))

		_, err := s.GetOrCreate(context.Background(), "abc")
		Expect(err).NotTo(HaveOccurred())
		_, err = s.GetOrCreate(context.Background(), "abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Len()).To(Equal(1))
	})

	It("keeps its own copy of the session id", func() {
		s := inmemory.NewStore()

		buf := []byte("abc")
		id := unsafe.String(&buf[0], len(buf))
		_, err := s.GetOrCreate(context.Background(), id)
		Expect(err).NotTo(HaveOccurred())

		copy(buf, "xyz")

		Expect(s.Append(context.Background(), "abc", session.NewTurn(llm.RoleUser, "Hi"))).To(Succeed())
		Expect(s.Len()).To(Equal(1))
	})
})
