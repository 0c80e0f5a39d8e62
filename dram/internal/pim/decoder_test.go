package pim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pimsim/dram/signal"
)

var _ = Describe("Decoder", func() {
	var (
		mockCtrl *gomock.Controller
		ctrl     *MockController
		s        *Scheduler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		ctrl = NewMockController(mockCtrl)
		ctrl.EXPECT().RefreshComing().Return(false).AnyTimes()
		ctrl.EXPECT().RefreshComingSoon().Return(false).AnyTimes()
		ctrl.EXPECT().InRefresh().Return(false).AnyTimes()

		s = newTestScheduler(1, 1, 2, []Controller{ctrl})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start unconfigured", func() {
		Expect(s.Configured()).To(BeFalse())
	})

	It("should reset every tile vector on a partition layout", func() {
		ctrl.EXPECT().SetMultiTenant(true)

		s.Push(cuttingTrans(1, 0, 0, 0, 0, 8))
		s.Tick(0)

		Expect(s.Configured()).To(BeTrue())
		Expect(s.vcuts).To(Equal(2))
		Expect(s.hcuts).To(Equal(1))
		Expect(s.mTileSize).To(Equal(256))

		Expect(s.tiles.m).To(HaveLen(2))
		Expect(s.tiles.outCnt).To(Equal([]int{-1, -1}))
		Expect(s.tiles.inCnt).To(Equal([]int{0, 0}))
		Expect(s.tiles.phase).To(Equal([]int{0, 0}))
		Expect(s.tiles.inPIM).To(Equal([]bool{false, false}))
	})

	It("should not mark single-tile layouts as multi-tenant", func() {
		s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
		s.Tick(0)

		Expect(s.cuts()).To(Equal(1))
	})

	It("should record dimensions and base rows on loads", func() {
		s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
		s.Push(loadTrans(0, 0, 64, 10))
		s.Push(loadTrans(0, 1, 32, 30))
		s.Push(loadTrans(0, 2, 16, 20))

		for clk := uint64(0); clk < 4; clk++ {
			s.Tick(clk)
		}

		Expect(s.tiles.m[0]).To(Equal(64))
		Expect(s.tiles.baseRowsW[0]).To(Equal(10))
		Expect(s.tiles.k[0]).To(Equal(32))
		Expect(s.tiles.baseRowsOut[0]).To(Equal(30))
		Expect(s.tiles.n[0]).To(Equal(16))
		Expect(s.tiles.baseRowsIn[0]).To(Equal(20))
	})

	It("should decode one queue entry per cycle", func() {
		s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
		s.Push(loadTrans(0, 0, 64, 10))

		s.Tick(0)

		Expect(s.Configured()).To(BeTrue())
		Expect(s.tiles.m[0]).To(Equal(0))

		s.Tick(1)

		Expect(s.tiles.m[0]).To(Equal(64))
	})

	It("should hold a compute transaction until its tiles are loaded",
		func() {
			s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
			s.Push(computeTrans(1))

			s.Tick(0)
			s.Tick(1)

			Expect(s.tiles.inPIM[0]).To(BeFalse())
			Expect(s.queue).To(HaveLen(1))

			s.Push(loadTrans(0, 0, 1, 10))
			s.Push(loadTrans(0, 1, 1, 30))
			s.Push(loadTrans(0, 2, 1, 20))

			// The compute entry stays at the front and retries while
			// the loads queue behind it.
			s.Tick(2)
			Expect(s.tiles.inPIM[0]).To(BeFalse())
		})

	It("should turn selected tiles on once they are loaded", func() {
		ctrl.EXPECT().
			GetReadyCommand(gomock.Any(), gomock.Any()).
			Return(signal.Command{}).
			AnyTimes()

		s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
		s.Push(loadTrans(0, 0, 1, 10))
		s.Push(loadTrans(0, 1, 1, 30))
		s.Push(loadTrans(0, 2, 1, 20))
		s.Push(computeTrans(1))

		for clk := uint64(0); clk < 5; clk++ {
			s.Tick(clk)
		}

		Expect(s.tiles.inPIM[0]).To(BeTrue())
		Expect(s.queue).To(BeEmpty())
	})

	It("should refuse an over-sized M tile", func() {
		Expect(func() {
			s.Push(cuttingTrans(0, 0, 0, 0, 0, 12))
			s.Tick(0)
		}).To(Panic())
	})

	It("should refuse an invalid load type", func() {
		s.Push(cuttingTrans(0, 0, 0, 0, 0, 8))
		s.Tick(0)

		Expect(func() {
			s.decodeLoad(0<<1 | 3<<4)
		}).To(Panic())
	})

	It("should refuse pushes beyond the queue depth", func() {
		for i := 0; i < 8; i++ {
			s.Push(loadTrans(0, 0, 1, 0))
		}

		Expect(s.WillAccept()).To(BeFalse())
		Expect(func() {
			s.Push(loadTrans(0, 0, 1, 0))
		}).To(Panic())
	})
})
