package session_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/session"
)

var _ = Describe("Session", func() {
	It("converts turns to model messages in order", func() {
		s := &session.Session{ID: "abc", Turns: []session.Turn{
			session.NewTurn(llm.RoleUser, "Hi"),
			session.NewTurn(llm.RoleAssistant, "Hello!"),
		}}

		Expect(s.Messages()).To(Equal([]llm.Message{
			{Role: llm.RoleUser, Content: "Hi"},
			{Role: llm.RoleAssistant, Content: "Hello!"},
		}))
	})

	It("stamps new turns in UTC", func() {
		t := session.NewTurn(llm.RoleUser, "Hi")
		Expect(t.CreatedAt).NotTo(BeZero())
		Expect(t.CreatedAt.Location().String()).To(Equal("UTC"))
	})
})
