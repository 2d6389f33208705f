package mmu

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/replacement"
)

var _ = Describe("Translation speed", func() {
	for _, policy := range replacement.Policies {
		It("should translate under "+string(policy), func() {
			experiment := gmeasure.NewExperiment(
				"Translation Speed, " + string(policy))
			AddReportEntry(experiment.Name, experiment)

			rng := rand.New(rand.NewSource(1))
			accesses := make([]vm.Access, 20000)
			for i := range accesses {
				accesses[i] = vm.Access{
					Address: rng.Uint64() % (1 << 16),
					IsWrite: rng.Intn(4) == 0,
				}
			}

			experiment.Sample(func(int) {
				mmu := MakeBuilder().
					WithNumFrames(128).
					WithPolicy(policy).
					WithBackingStore(backingstore.NewMemStore(256, 256)).
					Build("MMU")

				experiment.MeasureDuration("runtime", func() {
					stats, err := mmu.Run(&sliceReader{
						accesses: append([]vm.Access(nil), accesses...),
					})
					Expect(err).NotTo(HaveOccurred())
					Expect(stats.Accesses).To(Equal(uint64(len(accesses))))
				})
			}, gmeasure.SamplingConfig{N: 3})
		})
	}
})
