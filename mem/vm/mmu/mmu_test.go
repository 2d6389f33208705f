package mmu

import (
	"errors"
	"io"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
	"github.com/sarchlab/vmsim/sim/hooking"
)

type sliceReader struct {
	accesses []vm.Access
	err      error
}

func (r *sliceReader) Next() (vm.Access, error) {
	if len(r.accesses) == 0 {
		if r.err != nil {
			return vm.Access{}, r.err
		}

		return vm.Access{}, io.EOF
	}

	a := r.accesses[0]
	r.accesses = r.accesses[1:]

	return a, nil
}

type hookRecorder struct {
	results    []vm.AccessResult
	faults     []vm.PageFault
	writeBacks []vm.WriteBack
}

func (h *hookRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosAccess:
		h.results = append(h.results, ctx.Item.(vm.AccessResult))
	case HookPosPageFault:
		h.faults = append(h.faults, ctx.Item.(vm.PageFault))
	case HookPosWriteBack:
		h.writeBacks = append(h.writeBacks, ctx.Item.(vm.WriteBack))
	}
}

func read(addr uint64) vm.Access {
	return vm.Access{Address: addr}
}

func write(addr uint64) vm.Access {
	return vm.Access{Address: addr, IsWrite: true}
}

func patternStore(pageSize, numPages uint64) *backingstore.MemStore {
	s := backingstore.NewMemStore(pageSize, numPages)
	buf := make([]byte, pageSize)

	for p := uint64(0); p < numPages; p++ {
		for i := range buf {
			buf[i] = byte(p*16) + byte(i)
		}

		Expect(s.WritePage(p, buf)).To(Succeed())
	}

	return s
}

func residentPage(s Snapshot, page uint64) (ResidentPage, bool) {
	for _, r := range s.ResidentPages {
		if r.Page == page {
			return r, true
		}
	}

	return ResidentPage{}, false
}

var _ = Describe("MMU", func() {
	var (
		mockCtrl *gomock.Controller
		hooks    *hookRecorder
		builder  Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hooks = &hookRecorder{}
		builder = MakeBuilder().
			WithLog2PageSize(8).
			WithNumPageBits(2).
			WithNumFrames(4).
			WithNumTLBEntries(2)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("with a zeroed store", func() {
		var mmu *MMU

		BeforeEach(func() {
			mmu = builder.
				WithBackingStore(backingstore.NewMemStore(256, 4)).
				Build("MMU")
			mmu.AcceptHook(hooks)
		})

		It("should fault three times on the reference trace", func() {
			stats, err := mmu.Run(&sliceReader{accesses: []vm.Access{
				read(0x000), read(0x100), read(0x200), write(0x000),
			}})

			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Accesses).To(Equal(uint64(4)))
			Expect(stats.PageFaults).To(Equal(uint64(3)))
			Expect(stats.DirtyWriteBacks).To(Equal(uint64(0)))
			Expect(stats.Reads).To(Equal(uint64(3)))
			Expect(stats.Writes).To(Equal(uint64(1)))
			Expect(stats.TLBHits).To(Equal(uint64(0)))
			Expect(stats.TLBMisses).To(Equal(uint64(4)))

			page0, found := residentPage(mmu.Snapshot(), 0)
			Expect(found).To(BeTrue())
			Expect(page0.Dirty).To(BeTrue())

			Expect(hooks.results).To(HaveLen(4))
			Expect(hooks.faults).To(HaveLen(3))
			Expect(hooks.writeBacks).To(BeEmpty())
		})

		It("should hit in the TLB on a repeated page", func() {
			_, err := mmu.Translate(read(0x105))
			Expect(err).NotTo(HaveOccurred())

			result, err := mmu.Translate(read(0x1ff))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.TLBHit).To(BeTrue())
			Expect(result.PageFault).To(BeFalse())
			Expect(result.Page).To(Equal(uint64(1)))
			Expect(result.Offset).To(Equal(uint64(0xff)))
			Expect(result.PhysicalAddress).To(Equal(uint64(0x0ff)))
		})

		It("should mark both the TLB entry and the PTE dirty on a write hit", func() {
			_, err := mmu.Translate(read(0x010))
			Expect(err).NotTo(HaveOccurred())
			_, err = mmu.Translate(write(0x020))
			Expect(err).NotTo(HaveOccurred())

			s := mmu.Snapshot()
			page0, _ := residentPage(s, 0)
			Expect(page0.Dirty).To(BeTrue())
			Expect(s.TLB[0].Valid).To(BeTrue())
			Expect(s.TLB[0].Page).To(Equal(uint64(0)))
			Expect(s.TLB[0].Dirty).To(BeTrue())
		})

		It("should reject addresses outside the address space", func() {
			_, err := mmu.Translate(read(0x400))

			Expect(errors.Is(err, vm.ErrAddressOutOfRange)).To(BeTrue())
			Expect(mmu.Stats()).To(Equal(Stats{}))
			Expect(hooks.results).To(BeEmpty())
		})

		It("should keep hits plus misses equal to accesses", func() {
			r := rand.New(rand.NewSource(1))
			for i := 0; i < 500; i++ {
				a := vm.Access{
					Address: uint64(r.Intn(0x400)),
					IsWrite: r.Intn(3) == 0,
				}
				_, err := mmu.Translate(a)
				Expect(err).NotTo(HaveOccurred())
			}

			stats := mmu.Stats()
			Expect(stats.TLBHits + stats.TLBMisses).To(Equal(stats.Accesses))
			Expect(stats.TLBHits + stats.PageFaults).
				To(BeNumerically("<=", stats.Accesses))
		})
	})

	It("should return the byte stored at the physical address", func() {
		mmu := builder.
			WithBackingStore(patternStore(256, 4)).
			Build("MMU")

		result, err := mmu.Translate(read(0x203))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Frame).To(Equal(uint64(0)))
		Expect(result.PhysicalAddress).To(Equal(uint64(0x003)))
		Expect(result.Value).To(Equal(byte(0x23)))

		result, err = mmu.Translate(read(0x1e0))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Frame).To(Equal(uint64(1)))
		Expect(result.PhysicalAddress).To(Equal(uint64(0x1e0)))
		Expect(result.Value).To(Equal(byte(0xf0)))
	})

	It("should keep frames of pages that are never evicted", func() {
		mmu := builder.
			WithNumFrames(2).
			WithBackingStore(backingstore.NewMemStore(256, 4)).
			Build("MMU")

		frames := make(map[uint64]uint64)
		for i := 0; i < 20; i++ {
			result, err := mmu.Translate(vm.Access{
				Address: uint64(i%2)*0x100 + uint64(i),
				IsWrite: i%3 == 0,
			})
			Expect(err).NotTo(HaveOccurred())

			frame, seen := frames[result.Page]
			if seen {
				Expect(result.Frame).To(Equal(frame))
			}
			frames[result.Page] = result.Frame
		}

		Expect(frames).To(HaveLen(2))
	})

	It("should never map two pages onto one frame", func() {
		for _, policy := range replacement.Policies {
			mmu := builder.
				WithNumPageBits(4).
				WithNumFrames(3).
				WithPolicy(policy).
				WithBackingStore(backingstore.NewMemStore(256, 16)).
				Build("MMU")

			r := rand.New(rand.NewSource(7))
			for i := 0; i < 300; i++ {
				_, err := mmu.Translate(vm.Access{
					Address: uint64(r.Intn(0x1000)),
					IsWrite: r.Intn(2) == 0,
				})
				Expect(err).NotTo(HaveOccurred())

				frames := make(map[uint64]bool)
				for _, p := range mmu.Snapshot().ResidentPages {
					Expect(frames).NotTo(HaveKey(p.Frame))
					frames[p.Frame] = true
				}
			}
		}
	})

	It("should write a dirty page back exactly once on eviction", func() {
		store := NewMockStore(mockCtrl)
		store.EXPECT().PageSize().Return(uint64(256)).AnyTimes()
		store.EXPECT().NumPages().Return(uint64(4)).AnyTimes()

		content := make([]byte, 256)
		for i := range content {
			content[i] = byte(255 - i)
		}

		store.EXPECT().
			ReadPage(uint64(0), gomock.Any()).
			DoAndReturn(func(_ uint64, buf []byte) error {
				copy(buf, content)
				return nil
			})
		store.EXPECT().
			ReadPage(uint64(1), gomock.Any()).
			Return(nil)
		store.EXPECT().
			WritePage(uint64(0), content).
			Return(nil).
			Times(1)

		mmu := builder.
			WithNumFrames(1).
			WithNumTLBEntries(0).
			WithBackingStore(store).
			Build("MMU")
		mmu.AcceptHook(hooks)

		_, err := mmu.Run(&sliceReader{accesses: []vm.Access{
			write(0x000), read(0x100),
		}})

		Expect(err).NotTo(HaveOccurred())
		Expect(mmu.Stats().DirtyWriteBacks).To(Equal(uint64(1)))
		Expect(hooks.writeBacks).To(Equal([]vm.WriteBack{
			{Page: 0, Frame: 0, Source: vm.WriteBackFromPageTable},
		}))
		Expect(hooks.faults[1]).To(Equal(vm.PageFault{
			Page:         1,
			Frame:        0,
			Evicted:      true,
			EvictedPage:  0,
			EvictedDirty: true,
		}))
	})

	It("should write back a dirty TLB entry when its slot is reused", func() {
		mmu := builder.
			WithNumFrames(2).
			WithNumTLBEntries(1).
			WithBackingStore(backingstore.NewMemStore(256, 4)).
			Build("MMU")
		mmu.AcceptHook(hooks)

		_, err := mmu.Run(&sliceReader{accesses: []vm.Access{
			write(0x000), write(0x001), read(0x100),
		}})

		Expect(err).NotTo(HaveOccurred())
		Expect(hooks.writeBacks).To(Equal([]vm.WriteBack{
			{Page: 0, Frame: 0, Source: vm.WriteBackFromTLB},
		}))
		Expect(mmu.Stats().DirtyWriteBacks).To(Equal(uint64(1)))
	})

	It("should not translate through a reclaimed frame", func() {
		mmu := builder.
			WithNumFrames(1).
			WithBackingStore(patternStore(256, 4)).
			Build("MMU")

		_, err := mmu.Translate(read(0x000))
		Expect(err).NotTo(HaveOccurred())
		_, err = mmu.Translate(read(0x100))
		Expect(err).NotTo(HaveOccurred())

		result, err := mmu.Translate(read(0x004))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TLBHit).To(BeFalse())
		Expect(result.PageFault).To(BeTrue())
		Expect(result.Value).To(Equal(byte(0x04)))
	})

	It("should propagate backing store errors", func() {
		storeErr := errors.New("disk on fire")

		store := NewMockStore(mockCtrl)
		store.EXPECT().PageSize().Return(uint64(256)).AnyTimes()
		store.EXPECT().NumPages().Return(uint64(4)).AnyTimes()
		store.EXPECT().ReadPage(uint64(2), gomock.Any()).Return(storeErr)

		mmu := builder.WithBackingStore(store).Build("MMU")

		_, err := mmu.Translate(read(0x2aa))

		Expect(errors.Is(err, storeErr)).To(BeTrue())
		Expect(mmu.Stats().Accesses).To(Equal(uint64(0)))
	})

	It("should stop a run at the first reader error", func() {
		readerErr := errors.New("bad record")
		mmu := builder.
			WithBackingStore(backingstore.NewMemStore(256, 4)).
			Build("MMU")

		stats, err := mmu.Run(&sliceReader{
			accesses: []vm.Access{read(0x000)},
			err:      readerErr,
		})

		Expect(err).To(MatchError(readerErr))
		Expect(stats.Accesses).To(Equal(uint64(1)))
	})

	It("should count hook positions", func() {
		counter := hooking.NewPosCounter()
		mmu := builder.
			WithNumFrames(1).
			WithBackingStore(backingstore.NewMemStore(256, 4)).
			Build("MMU")
		mmu.AcceptHook(counter)

		_, err := mmu.Run(&sliceReader{accesses: []vm.Access{
			write(0x000), read(0x100), read(0x101),
		}})
		Expect(err).NotTo(HaveOccurred())

		Expect(counter.Count(HookPosAccess.Name)).To(Equal(uint64(3)))
		Expect(counter.Count(HookPosPageFault.Name)).To(Equal(uint64(2)))
		Expect(counter.Count(HookPosWriteBack.Name)).To(Equal(uint64(1)))
	})
})

var _ = Describe("Stats", func() {
	It("should report zero rates without accesses", func() {
		Expect(Stats{}.PageFaultRate()).To(Equal(0.0))
		Expect(Stats{}.TLBHitRate()).To(Equal(0.0))
	})

	It("should compute rates", func() {
		s := Stats{Accesses: 8, PageFaults: 2, TLBHits: 4}

		Expect(s.PageFaultRate()).To(Equal(0.25))
		Expect(s.TLBHitRate()).To(Equal(0.5))
	})
})

var _ = Describe("Builder", func() {
	It("should require a backing store", func() {
		Expect(func() { MakeBuilder().Build("MMU") }).To(Panic())
	})

	It("should require a matching page size", func() {
		Expect(func() {
			MakeBuilder().
				WithBackingStore(backingstore.NewMemStore(512, 256)).
				Build("MMU")
		}).To(Panic())
	})

	It("should require enough pages in the store", func() {
		Expect(func() {
			MakeBuilder().
				WithBackingStore(backingstore.NewMemStore(256, 128)).
				Build("MMU")
		}).To(Panic())
	})

	It("should reject unknown policies", func() {
		Expect(func() {
			MakeBuilder().
				WithPolicy("random").
				WithBackingStore(backingstore.NewMemStore(256, 256)).
				Build("MMU")
		}).To(Panic())
	})

	It("should build with the defaults", func() {
		mmu := MakeBuilder().
			WithBackingStore(backingstore.NewMemStore(256, 256)).
			Build("MMU")

		Expect(mmu.Name()).To(Equal("MMU"))
		Expect(mmu.Config()).To(Equal(Config{
			Log2PageSize:  8,
			NumPageBits:   8,
			NumFrames:     256,
			NumTLBEntries: 16,
			RecencyBound:  vm.DefaultRecencyBound,
			Policy:        replacement.LRU,
		}))
		Expect(mmu.Snapshot().TLB).To(HaveLen(16))
	})
})
