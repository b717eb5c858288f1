package chat

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("keyedMutex", func() {
	It("excludes holders of the same key", func() {
		k := newKeyedMutex()
		var active, peak atomic.Int32
		var wg sync.WaitGroup

		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock("same")
				defer unlock()

				cur := active.Add(1)
				for {
					p := peak.Load()
					if cur <= p || peak.CompareAndSwap(p, cur) {
						break
					}
				}
				active.Add(-1)
			}()
		}
		wg.Wait()

		Expect(peak.Load()).To(BeEquivalentTo(1))
		Expect(k.size()).To(BeZero())
	})

	It("lets different keys proceed independently", func() {
		k := newKeyedMutex()
		unlockA := k.Lock("a")

		done := make(chan struct{})
		go func() {
			unlockB := k.Lock("b")
			unlockB()
			close(done)
		}()

		Eventually(done).Should(BeClosed())
		Expect(k.size()).To(Equal(1))
		unlockA()
		Expect(k.size()).To(BeZero())
	})
})
