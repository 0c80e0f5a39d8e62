package pim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pimsim/dram/signal"
)

var _ = Describe("Scheduler", func() {
	Context("with a single tile", func() {
		var (
			ctrl *fakeController
			s    *Scheduler
		)

		BeforeEach(func() {
			ctrl = newFakeController(2)
			s = newTestScheduler(1, 1, 2, []Controller{ctrl})

			s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
			s.Push(loadTrans(0, 0, 1, 10))
			s.Push(loadTrans(0, 1, 32, 30))
			s.Push(loadTrans(0, 2, 1, 20))
			s.Push(computeTrans(1))
		})

		It("should walk weight, input, and output to completion", func() {
			var phases []int
			sawWeightAct := false

			for clk := uint64(0); clk < 100; clk++ {
				s.Tick(clk)

				if len(s.tiles.phase) > 0 {
					phases = append(phases, s.tiles.phase[0])
				}
				if len(s.tiles.wActPlaced) > 0 && s.tiles.wActPlaced[0] {
					sawWeightAct = true
				}

				if s.TurnOff() {
					break
				}
			}

			Expect(sawWeightAct).To(BeTrue())
			Expect(phases).To(ContainElement(phaseInputDone))

			// The 32-deep reduction spans two weight blocks, so the
			// tile returns to weight fetching once in between.
			Expect(containsTransition(
				phases, phaseInputDone, phaseFetchWeight)).To(BeTrue())

			Expect(s.tiles.inPIM[0]).To(BeFalse())
			Expect(s.TurnOff()).To(BeTrue())

			Expect(countKind(ctrl.weightCmds,
				signal.KindPIMActivate)).To(BeNumerically(">", 0))
			Expect(countKind(ctrl.weightCmds,
				signal.KindPIMReadPrecharge)).To(BeNumerically(">", 0))
			Expect(countKind(ctrl.inputCmds,
				signal.KindPIMReadPrecharge)).To(BeNumerically(">", 0))
			Expect(countKind(ctrl.outputCmds,
				signal.KindPIMWritePrecharge)).To(Equal(1))
		})

		It("should only ever move through the documented phases", func() {
			prev := phaseFetchWeight

			for clk := uint64(0); clk < 100; clk++ {
				s.Tick(clk)

				if len(s.tiles.phase) == 0 {
					continue
				}

				phase := s.tiles.phase[0]
				Expect(phase).To(BeNumerically(">=", phaseFetchWeight))
				Expect(phase).To(BeNumerically("<=", phaseInputDone))

				if phase != prev {
					valid := phase == prev+1 ||
						(prev == phaseInputDone &&
							phase == phaseFetchWeight)
					Expect(valid).To(BeTrue())
				}
				prev = phase

				if s.TurnOff() {
					break
				}
			}

			Expect(s.TurnOff()).To(BeTrue())
		})

		It("should not issue activates while a refresh approaches", func() {
			ctrl.refreshComing = true

			for clk := uint64(0); clk < 15; clk++ {
				s.Tick(clk)
			}

			Expect(ctrl.weightCmds).To(BeEmpty())
			Expect(s.tiles.wActPlaced[0]).To(BeFalse())

			ctrl.refreshComing = false
			s.Tick(15)

			Expect(countKind(ctrl.weightCmds,
				signal.KindPIMActivate)).To(BeNumerically(">", 0))
		})

		It("should clear placed-activate flags when a refresh approaches",
			func() {
				clk := uint64(0)
				for ; clk < 100; clk++ {
					s.Tick(clk)
					if len(s.tiles.inActPlaced) > 0 &&
						s.tiles.inActPlaced[0] {
						break
					}
				}
				Expect(s.tiles.inActPlaced[0]).To(BeTrue())

				ctrl.refreshComing = true
				s.Tick(clk + 1)

				Expect(s.tiles.inActPlaced[0]).To(BeFalse())
				Expect(s.tiles.wActPlaced[0]).To(BeFalse())
				Expect(s.tiles.outActPlaced[0]).To(BeFalse())
			})

		It("should pause tiles entirely during an active refresh", func() {
			ctrl.inRefresh = true

			for clk := uint64(0); clk < 15; clk++ {
				s.Tick(clk)
			}

			// Decode still runs; the tile is on but never stepped.
			Expect(s.tiles.inPIM[0]).To(BeTrue())
			Expect(s.tiles.phase[0]).To(Equal(phaseFetchWeight))
			Expect(ctrl.weightCmds).To(BeEmpty())

			ctrl.inRefresh = false
			for clk := uint64(15); clk < 115; clk++ {
				s.Tick(clk)
				if s.TurnOff() {
					break
				}
			}

			Expect(s.TurnOff()).To(BeTrue())
		})
	})

	Context("with two tiles side by side", func() {
		var (
			ctrl *fakeController
			s    *Scheduler
		)

		BeforeEach(func() {
			ctrl = newFakeController(2)
			s = newTestScheduler(1, 2, 2, []Controller{ctrl})

			s.Push(cuttingTrans(1, 0, 0, 0, 0, 8))
			s.Push(loadTrans(0, 0, 1, 10))
			s.Push(loadTrans(0, 1, 16, 30))
			s.Push(loadTrans(0, 2, 1, 20))
			s.Push(loadTrans(1, 0, 1, 11))
			s.Push(loadTrans(1, 1, 16, 31))
			s.Push(loadTrans(1, 2, 1, 21))
		})

		It("should progress both tiles in lockstep", func() {
			for clk := uint64(0); clk < 7; clk++ {
				s.Tick(clk)
			}
			s.Push(computeTrans(0b11))

			for clk := uint64(7); clk < 120; clk++ {
				s.Tick(clk)

				if s.tiles.inPIM[0] && s.tiles.inPIM[1] {
					Expect(s.tiles.phase[0]).To(Equal(s.tiles.phase[1]))
				}

				if s.TurnOff() {
					break
				}
			}

			Expect(s.TurnOff()).To(BeTrue())
			Expect(s.tiles.inPIM).To(Equal([]bool{false, false}))
		})

		It("should tear down the paired tile with the emitting one",
			func() {
				for clk := uint64(0); clk < 7; clk++ {
					s.Tick(clk)
				}
				s.Push(computeTrans(0b11))

				for clk := uint64(7); clk < 120; clk++ {
					s.Tick(clk)
					if s.TurnOff() {
						break
					}
				}

				// Only the even tile may write output on this narrow
				// layout; its completion turns both tiles off.
				Expect(ctrl.outputCmds).NotTo(BeEmpty())
				Expect(s.tiles.inPIM[1]).To(BeFalse())
				Expect(s.tiles.outputValid[1]).To(Equal(0))
			})
	})

	Context("with a lone tile and a pending peer entry", func() {
		It("should hold at weight-done until the peer moves on", func() {
			ctrl := newFakeController(2)
			s := newTestScheduler(1, 1, 2, []Controller{ctrl})

			s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
			s.Push(loadTrans(0, 0, 1, 10))
			s.Push(loadTrans(0, 1, 16, 30))
			s.Push(loadTrans(0, 2, 1, 20))
			s.Push(computeTrans(1))

			clk := uint64(0)
			for ; clk < 20; clk++ {
				s.Tick(clk)
				if s.tiles.phase[0] == phaseWeightDone {
					break
				}
			}
			Expect(s.tiles.phase[0]).To(Equal(phaseWeightDone))

			s.tiles.phase = append(s.tiles.phase, phaseFetchWeight)

			clk++
			s.Tick(clk)
			Expect(s.tiles.phase[0]).To(Equal(phaseWeightDone))

			s.tiles.phase[1] = phaseFeedInput

			clk++
			s.Tick(clk)
			Expect(s.tiles.phase[0]).To(Equal(phaseFeedInput))
		})
	})

	Context("negotiating batches with a controller", func() {
		var (
			mockCtrl *gomock.Controller
			ctrl     *MockController
			s        *Scheduler
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			ctrl = NewMockController(mockCtrl)

			s = newTestScheduler(1, 1, 2, []Controller{ctrl})
			s.vcuts = 1
			s.hcuts = 1
			s.mcf = 2
			s.ucf = 1
			s.mc = 2
			s.df = 0
			s.mTileSize = 256
			s.tiles.reset(1)

			s.tiles.m[0] = 4
			s.tiles.n[0] = 128
			s.tiles.k[0] = 16
			s.tiles.baseRowsW[0] = 10
			s.tiles.baseRowsIn[0] = 20
			s.tiles.baseRowsOut[0] = 30
			s.tiles.inPIM[0] = true
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should drop a mixed weight batch without advancing", func() {
			act := signal.Command{Kind: signal.KindPIMActivate}
			read := signal.Command{Kind: signal.KindPIMRead}

			first := ctrl.EXPECT().
				GetReadyCommand(gomock.Any(), gomock.Any()).
				Return(act)
			ctrl.EXPECT().
				GetReadyCommand(gomock.Any(), gomock.Any()).
				Return(read).
				After(first)

			s.stepTile(0, 0, false)

			Expect(s.tiles.nIt[0]).To(Equal(0))
			Expect(s.tiles.wActPlaced[0]).To(BeFalse())
		})

		It("should keep only the prerequisites of a mixed input batch",
			func() {
				s.tiles.phase[0] = phaseFeedInput
				s.tiles.inActPlaced[0] = true

				act := signal.Command{Kind: signal.KindPIMActivate}
				read := signal.Command{Kind: signal.KindPIMRead}

				first := ctrl.EXPECT().
					GetReadyCommand(gomock.Any(), gomock.Any()).
					Return(act)
				ctrl.EXPECT().
					GetReadyCommand(gomock.Any(), gomock.Any()).
					Return(read).
					After(first)

				ctrl.EXPECT().
					PushInputCommand(act, gomock.Any()).
					Times(1)

				s.stepTile(0, 0, false)

				// The activate of a mixed batch places even over an
				// already-placed row; the read is discarded and the M
				// iterator holds.
				Expect(s.tiles.inActPlaced[0]).To(BeTrue())
				Expect(s.tiles.mIt[0]).To(Equal(0))
			})
	})
})
