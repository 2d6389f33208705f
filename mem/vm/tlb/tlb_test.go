package tlb

import (
	"errors"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = ginkgo.Describe("TLB", func() {
	var (
		mockCtrl *gomock.Controller
		writer   *MockPageWriter
		tlb      *TLB
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		writer = NewMockPageWriter(mockCtrl)

		tlb = MakeBuilder().
			WithNumEntries(2).
			WithPageWriter(writer).
			Build()
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should miss when empty", func() {
		_, found := tlb.Lookup(1, false)

		Expect(found).To(BeFalse())
		Expect(tlb.Hits()).To(BeZero())
	})

	ginkgo.It("should hit after install", func() {
		Expect(tlb.Install(1, 7)).To(Succeed())

		frame, found := tlb.Lookup(1, false)

		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(uint64(7)))
		Expect(tlb.Hits()).To(Equal(uint64(1)))
		Expect(tlb.Entries()[0]).To(Equal(Entry{Valid: true, Page: 1, Frame: 7}))
	})

	ginkgo.It("should not change entries on a miss", func() {
		Expect(tlb.Install(1, 7)).To(Succeed())
		before := tlb.Entries()

		_, found := tlb.Lookup(2, true)

		Expect(found).To(BeFalse())
		Expect(tlb.Entries()).To(Equal(before))
	})

	ginkgo.It("should mark the entry dirty on a write hit", func() {
		Expect(tlb.Install(1, 7)).To(Succeed())

		_, found := tlb.Lookup(1, true)

		Expect(found).To(BeTrue())
		Expect(tlb.Entries()[0].Dirty).To(BeTrue())
	})

	ginkgo.It("should replace in FIFO order regardless of use", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		Expect(tlb.Install(2, 20)).To(Succeed())

		tlb.Lookup(1, false)
		tlb.Lookup(1, false)

		Expect(tlb.Install(3, 30)).To(Succeed())

		_, found := tlb.Lookup(1, false)
		Expect(found).To(BeFalse())
		_, found = tlb.Lookup(2, false)
		Expect(found).To(BeTrue())
		_, found = tlb.Lookup(3, false)
		Expect(found).To(BeTrue())
	})

	ginkgo.It("should overwrite an existing entry in place", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		Expect(tlb.Install(2, 20)).To(Succeed())
		tlb.Lookup(1, true)

		Expect(tlb.Install(1, 11)).To(Succeed())

		Expect(tlb.Entries()).To(Equal([]Entry{
			{Valid: true, Page: 1, Frame: 11},
			{Valid: true, Page: 2, Frame: 20},
		}))

		Expect(tlb.Install(3, 30)).To(Succeed())
		Expect(tlb.Entries()[0].Page).To(Equal(uint64(3)))
	})

	ginkgo.It("should write back a dirty entry before its slot is reused", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		Expect(tlb.Install(2, 20)).To(Succeed())
		tlb.Lookup(1, true)

		writer.EXPECT().PageOut(uint64(10), uint64(1)).Return(nil).Times(1)

		Expect(tlb.Install(3, 30)).To(Succeed())
		Expect(tlb.Entries()[0]).To(Equal(Entry{Valid: true, Page: 3, Frame: 30}))
	})

	ginkgo.It("should not write back clean entries", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		Expect(tlb.Install(2, 20)).To(Succeed())
		Expect(tlb.Install(3, 30)).To(Succeed())
		Expect(tlb.Install(4, 40)).To(Succeed())
	})

	ginkgo.It("should keep the old entry if the write back fails", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		Expect(tlb.Install(2, 20)).To(Succeed())
		tlb.Lookup(1, true)

		writer.EXPECT().PageOut(uint64(10), uint64(1)).
			Return(errors.New("disk gone"))

		Expect(tlb.Install(3, 30)).To(MatchError("disk gone"))
		Expect(tlb.Entries()[0].Page).To(Equal(uint64(1)))
	})

	ginkgo.It("should invalidate without writing back or moving the cursor", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		tlb.Lookup(1, true)

		tlb.Invalidate(1)
		tlb.Invalidate(5)

		_, found := tlb.Lookup(1, false)
		Expect(found).To(BeFalse())

		Expect(tlb.Install(2, 20)).To(Succeed())
		Expect(tlb.Entries()[1].Page).To(Equal(uint64(2)))
	})

	ginkgo.It("should forget everything on reset", func() {
		Expect(tlb.Install(1, 10)).To(Succeed())
		tlb.Lookup(1, true)

		tlb.Reset()

		Expect(tlb.Hits()).To(BeZero())
		Expect(tlb.Entries()).To(Equal([]Entry{{}, {}}))
	})

	ginkgo.Context("without entries", func() {
		ginkgo.BeforeEach(func() {
			tlb = MakeBuilder().WithNumEntries(0).Build()
		})

		ginkgo.It("should never hit", func() {
			Expect(tlb.Install(1, 10)).To(Succeed())

			_, found := tlb.Lookup(1, false)
			Expect(found).To(BeFalse())
		})
	})

	ginkgo.It("should require a page writer", func() {
		Expect(func() { MakeBuilder().Build() }).To(Panic())
	})
})
