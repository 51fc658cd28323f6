package capture

import (
	"bytes"
	"testing"
)

func TestBlockAssemblerFixedBlocks(t *testing.T) {
	var blocks [][]byte
	a := newBlockAssembler(4, func(b []byte) { blocks = append(blocks, b) })

	// Uneven writes still come out as exact 4-byte blocks.
	a.write([]byte{1, 2})
	a.write([]byte{3})
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks yet, got %d", len(blocks))
	}

	a.write([]byte{4, 5, 6, 7, 8, 9})
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !bytes.Equal(blocks[0], []byte{1, 2, 3, 4}) {
		t.Errorf("block 0: got %v", blocks[0])
	}
	if !bytes.Equal(blocks[1], []byte{5, 6, 7, 8}) {
		t.Errorf("block 1: got %v", blocks[1])
	}

	a.write([]byte{10, 11, 12})
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if !bytes.Equal(blocks[2], []byte{9, 10, 11, 12}) {
		t.Errorf("block 2: got %v", blocks[2])
	}
}

func TestBlockAssemblerEmitsCopies(t *testing.T) {
	var blocks [][]byte
	a := newBlockAssembler(2, func(b []byte) { blocks = append(blocks, b) })

	src := []byte{1, 2}
	a.write(src)
	src[0] = 0xFF

	if blocks[0][0] != 1 {
		t.Error("emitted block aliases the caller's buffer")
	}
}

func TestBlockAssemblerExactBoundary(t *testing.T) {
	var blocks [][]byte
	a := newBlockAssembler(4, func(b []byte) { blocks = append(blocks, b) })

	a.write([]byte{1, 2, 3, 4})
	a.write([]byte{5, 6, 7, 8})
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if len(a.pending) != 0 {
		t.Errorf("expected empty pending buffer, got %d bytes", len(a.pending))
	}
}
