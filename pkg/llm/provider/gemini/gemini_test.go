package gemini_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/genai"

	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/llm/provider/gemini"
)

var _ = Describe("BuildContents", func() {
	It("lifts system messages into the instruction and maps roles", func() {
		contents, system := gemini.BuildContents([]llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "You are a shop assistant."),
			llm.NewTextMessage(llm.RoleUser, "Hi"),
			llm.NewTextMessage(llm.RoleAssistant, "Hello!"),
			llm.NewTextMessage(llm.RoleUser, "Price?"),
		})

		Expect(system).NotTo(BeNil())
		Expect(system.Parts).To(HaveLen(1))
		Expect(system.Parts[0].Text).To(Equal("You are a shop assistant."))

		Expect(contents).To(HaveLen(3))
		Expect(contents[0].Role).To(Equal("user"))
		Expect(contents[1].Role).To(Equal("model"))
		Expect(contents[1].Parts[0].Text).To(Equal("Hello!"))
		Expect(contents[2].Parts[0].Text).To(Equal("Price?"))
	})

	It("returns a nil instruction without system messages", func() {
		_, system := gemini.BuildContents([]llm.Message{llm.NewTextMessage(llm.RoleUser, "Hi")})
		Expect(system).To(BeNil())
	})
})

var _ = Describe("ParseResponse", func() {
	It("extracts text and usage from the first candidate", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:      &genai.Content{Role: "model", Parts: []*genai.Part{{Text: "Hello!"}}},
				FinishReason: genai.FinishReasonStop,
			}},
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     10,
				CandidatesTokenCount: 2,
				TotalTokenCount:      12,
			},
		}

		out, err := gemini.ParseResponse("gemini-2.0-flash", resp)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Model).To(Equal("gemini-2.0-flash"))
		Expect(out.Message.Content).To(Equal("Hello!"))
		Expect(out.StopReason).To(Equal("stop"))
		Expect(out.Usage.TotalTokens).To(Equal(12))
	})

	It("reports an empty response when there are no candidates", func() {
		_, err := gemini.ParseResponse("m", &genai.GenerateContentResponse{})
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})

	It("reports an empty response for a nil response", func() {
		_, err := gemini.ParseResponse("m", nil)
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})
})
