package chat

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("errors", func() {
	It("classifies wrapped errors", func() {
		err := wrap(ErrUpstreamFailure, errors.New("timeout"))
		Expect(Kind(err)).To(Equal(ErrUpstreamFailure))
		Expect(Detail(err)).To(Equal("timeout"))
		Expect(err.Error()).To(Equal("upstream_failure: timeout"))
	})

	It("returns nil kind for foreign errors", func() {
		err := errors.New("boom")
		Expect(Kind(err)).To(BeNil())
		Expect(Detail(err)).To(Equal("boom"))
	})

	It("handles nil", func() {
		Expect(Kind(nil)).To(BeNil())
		Expect(Detail(nil)).To(BeEmpty())
	})
})
