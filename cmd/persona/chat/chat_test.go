package chatcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/persona/api"
	"github.com/papercomputeco/persona/pkg/config"
	"github.com/papercomputeco/persona/pkg/logger"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := NewChatCmd()
		Expect(cmd.Name()).To(Equal("chat"))
	})

	It("has a --target flag defaulting to the config client target", func() {
		cmd := NewChatCmd()
		flag := cmd.Flags().Lookup("target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("t"))
		Expect(flag.DefValue).To(Equal(config.NewDefaultConfig().Client.Target))
	})

	It("has a --session flag", func() {
		cmd := NewChatCmd()
		Expect(cmd.Flags().Lookup("session")).NotTo(BeNil())
	})
})

var _ = Describe("chatCommander", func() {
	var (
		server   *httptest.Server
		mu       sync.Mutex
		received []api.ChatRequest
		status   int
		out      *bytes.Buffer
	)

	newCommander := func(in string) *chatCommander {
		return &chatCommander{
			target:    server.URL,
			sessionID: "sess-1",
			raw:       true,
			in:        strings.NewReader(in),
			out:       out,
			client:    server.Client(),
			logger:    logger.Nop(),
		}
	}

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		out = &bytes.Buffer{}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(r.Method).To(Equal(http.MethodPost))

			var req api.ChatRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())

			mu.Lock()
			received = append(received, req)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status != http.StatusOK {
				_, _ = w.Write([]byte(`{"error":"misconfigured","detail":"model API key not configured"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(api.ChatResponse{Reply: "echo: " + req.Message})
		}))
		DeferCleanup(server.Close)
	})

	It("sends the message with the session id and returns the reply", func() {
		c := newCommander("")
		reply, err := c.send(context.Background(), "Hi")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("echo: Hi"))
		Expect(received).To(Equal([]api.ChatRequest{{Message: "Hi", SessionID: "sess-1"}}))
	})

	It("surfaces server error bodies", func() {
		status = http.StatusInternalServerError
		c := newCommander("")
		_, err := c.send(context.Background(), "Hi")
		Expect(err).To(MatchError("misconfigured: model API key not configured"))
	})

	It("keeps one session across REPL turns", func() {
		c := newCommander("first\n\nsecond\n/exit\nignored\n")
		Expect(c.repl(context.Background())).To(Succeed())

		Expect(received).To(HaveLen(2))
		Expect(received[0].SessionID).To(Equal("sess-1"))
		Expect(received[1].SessionID).To(Equal("sess-1"))
		Expect(received[1].Message).To(Equal("second"))
		Expect(out.String()).To(ContainSubstring("echo: second"))
	})

	It("prints a single reply in one-shot mode", func() {
		c := newCommander("")
		Expect(c.once(context.Background(), "hello there")).To(Succeed())
		Expect(out.String()).To(Equal("echo: hello there\n"))
	})
})
