package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/memory"
)

var _ = Describe("Storage", func() {
	It("should read and write in single unit", func() {
		storage := memory.NewStorage(4096, 4096)
		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		res, _ := storage.Read(0, 2)
		Expect(res).To(Equal([]byte{1, 2}))

		res, _ = storage.Read(1, 2)
		Expect(res).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := memory.NewStorage(1024, 256)
		Expect(storage.Write(254, []byte{1, 2, 3, 4})).To(Succeed())

		res, err := storage.Read(254, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]byte{1, 2, 3, 4}))
		Expect(storage.NumAllocatedUnits()).To(Equal(2))
	})

	It("should read zeros from untouched units", func() {
		storage := memory.NewStorage(1024, 256)
		buf := []byte{9, 9, 9}

		Expect(storage.ReadInto(512, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{0, 0, 0}))
	})

	It("should not allocate units on read", func() {
		storage := memory.NewStorage(1024, 256)
		Expect(storage.Write(0, []byte{7})).To(Succeed())

		res, err := storage.Read(200, 400)
		Expect(err).NotTo(HaveOccurred())
		Expect(res[0]).To(BeZero())
		Expect(storage.NumAllocatedUnits()).To(Equal(1))

		buf := []byte{9, 9}
		Expect(storage.ReadInto(255, buf)).To(Succeed())
		Expect(buf).To(Equal([]byte{0, 0}))
		Expect(storage.NumAllocatedUnits()).To(Equal(1))
	})

	It("should return error if accessing over the capacity", func() {
		storage := memory.NewStorage(4096, 4096)
		err := storage.Write(4095, []byte{1, 2})
		Expect(err).To(MatchError(memory.ErrBeyondCapacity))

		_, err = storage.Read(4097, 1)
		Expect(err).To(MatchError(memory.ErrBeyondCapacity))
	})

	It("should reject unit sizes that are not powers of 2", func() {
		Expect(func() { memory.NewStorage(4096, 100) }).To(Panic())
	})
})

var _ = Describe("PhysicalMemory", func() {
	var m *memory.PhysicalMemory

	BeforeEach(func() {
		m = memory.NewPhysicalMemory(4, 16)
	})

	It("should report its geometry", func() {
		Expect(m.NumFrames()).To(Equal(uint64(4)))
		Expect(m.FrameSize()).To(Equal(uint64(16)))
		Expect(m.Size()).To(Equal(uint64(64)))
	})

	It("should expose frames as aliases of the memory", func() {
		copy(m.Frame(2), []byte{7, 8})

		v, err := m.ByteAt(32)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(byte(7)))

		Expect(m.SetByte(33, 5)).To(Succeed())
		Expect(m.Frame(2)[1]).To(Equal(byte(5)))
	})

	It("should not let a frame slice grow into the next frame", func() {
		f := m.Frame(0)
		f = append(f, 1)

		Expect(m.Frame(1)[0]).To(BeZero())
		Expect(f).To(HaveLen(17))
	})

	It("should reject out of range accesses", func() {
		_, err := m.ByteAt(64)
		Expect(err).To(MatchError(memory.ErrBeyondCapacity))
		Expect(func() { m.Frame(4) }).To(Panic())
	})
})
