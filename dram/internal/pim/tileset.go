package pim

// Tile phases. A tile cycles fetch-weight -> weight-done -> feed-input ->
// input-done and back to fetch-weight until its output drains.
const (
	phaseFetchWeight = iota
	phaseWeightDone
	phaseFeedInput
	phaseInputDone
)

// tileSet holds the per-tile state vectors. All vectors have the same
// length, one entry per tile, and are bulk-reset whenever a new partition
// layout is configured.
type tileSet struct {
	baseRowsW   []int
	baseRowsIn  []int
	baseRowsOut []int

	m []int
	n []int
	k []int

	mIt     []int
	kTileIt []int
	nIt     []int

	mOutIt     []int
	nOutTileIt []int

	inPIM []bool
	phase []int

	inCnt  []int
	outCnt []int
	vpuCnt []int

	outputValid []int

	inActPlaced  []bool
	wActPlaced   []bool
	outActPlaced []bool
}

// reset re-sizes every vector to cuts entries with their idle defaults.
// outCnt idles at -1; everything else starts at zero/false.
func (t *tileSet) reset(cuts int) {
	t.baseRowsW = make([]int, cuts)
	t.baseRowsIn = make([]int, cuts)
	t.baseRowsOut = make([]int, cuts)

	t.m = make([]int, cuts)
	t.n = make([]int, cuts)
	t.k = make([]int, cuts)

	t.mIt = make([]int, cuts)
	t.kTileIt = make([]int, cuts)
	t.nIt = make([]int, cuts)

	t.mOutIt = make([]int, cuts)
	t.nOutTileIt = make([]int, cuts)

	t.inPIM = make([]bool, cuts)
	t.phase = make([]int, cuts)

	t.inCnt = make([]int, cuts)
	t.outCnt = make([]int, cuts)
	for i := range t.outCnt {
		t.outCnt[i] = -1
	}
	t.vpuCnt = make([]int, cuts)

	t.outputValid = make([]int, cuts)

	t.inActPlaced = make([]bool, cuts)
	t.wActPlaced = make([]bool, cuts)
	t.outActPlaced = make([]bool, cuts)
}

// clearActPlaced drops every row-open flag, forcing the tiles to re-assert
// their ACTIVATEs. Called when a refresh window approaches.
func (t *tileSet) clearActPlaced() {
	for j := range t.inActPlaced {
		t.inActPlaced[j] = false
		t.wActPlaced[j] = false
		t.outActPlaced[j] = false
	}
}
