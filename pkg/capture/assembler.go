package capture

// blockAssembler re-slices arbitrarily-sized device callbacks into
// fixed-size blocks. It runs on the device callback thread: emit must
// not block.
type blockAssembler struct {
	blockBytes int
	pending    []byte
	emit       func(block []byte)
}

func newBlockAssembler(blockBytes int, emit func([]byte)) *blockAssembler {
	return &blockAssembler{
		blockBytes: blockBytes,
		pending:    make([]byte, 0, blockBytes*2),
		emit:       emit,
	}
}

func (a *blockAssembler) write(data []byte) {
	a.pending = append(a.pending, data...)
	for len(a.pending) >= a.blockBytes {
		block := make([]byte, a.blockBytes)
		copy(block, a.pending[:a.blockBytes])
		a.pending = a.pending[:copy(a.pending, a.pending[a.blockBytes:])]
		a.emit(block)
	}
}
