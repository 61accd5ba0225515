package vm

import "github.com/Neptune-Developer/Comet-OS/bits"

// Prot is a bit-set of access permissions requested of Map/Protect.
type Prot uint32

const (
	ProtRead  Prot = 1 << 0
	ProtWrite Prot = 1 << 1
	ProtExec  Prot = 1 << 2
	ProtUser  Prot = 1 << 3
)

// wxFlag records whether a VmArea was ever mapped writable or executable,
// independent of its current Prot.
type wxFlag uint32

const (
	wasExec  wxFlag = 1 << 0
	wasWrite wxFlag = 1 << 1
)

// ARMv8 stage-1 leaf/table descriptor bit positions and the attribute index
// this tree reserves for normal, write-back write-allocate memory (index 2
// in MAIR_EL1, see arm64.MairNormal; index 0 is Device-nGnRnE).
const (
	pteValid   = 0
	pteTable   = 1
	pteAttrIdx = 2 // 3-bit field, bits [4:2]
	pteAP      = 6 // 2-bit field, bits [7:6]
	pteSH      = 8 // 2-bit field, bits [9:8]
	pteAF      = 10
	ptePXN     = 53
	pteUXN     = 54

	pteSHInner  = uint64(3) << pteSH
	pteAddrMask = uint64(0x0000ffffffffffff) &^ 0xfff

	attrIndexNormal = 2

	apRW_EL1 = 0
	apRO_EL1 = 2
	apRW_EL0 = 1
	apRO_EL0 = 3
)

// encodeLeaf builds an L3 page descriptor for phys with the access
// permissions in prot: VALID|PAGE (bits 1:0 = 11)|AF|SH=inner|AttrIndx,
// UXN/PXN set unless EXEC is requested, AP encoding RW/RO split on USER.
func encodeLeaf(phys uint64, prot Prot) uint64 {
	pte := phys&pteAddrMask | 1<<pteValid | 1<<pteTable | 1<<pteAF | pteSHInner

	bits.SetN64(&pte, pteAttrIdx, 0x7, attrIndexNormal)

	if prot&ProtExec == 0 {
		bits.Set64(&pte, ptePXN)
		bits.Set64(&pte, pteUXN)
	}

	var ap uint64
	switch {
	case prot&ProtWrite != 0 && prot&ProtUser != 0:
		ap = apRW_EL0
	case prot&ProtWrite != 0:
		ap = apRW_EL1
	case prot&ProtRead != 0 && prot&ProtUser != 0:
		ap = apRO_EL0
	case prot&ProtRead != 0:
		ap = apRO_EL1
	}
	bits.SetN64(&pte, pteAP, 0x3, ap)

	return pte
}

// encodeTable builds a table descriptor pointing at the child table's
// physical address.
func encodeTable(phys uint64) uint64 {
	return phys&pteAddrMask | 1<<pteValid | 1<<pteTable | 1<<pteAF | pteSHInner
}

func isValid(pte uint64) bool {
	return bits.Get64(&pte, pteValid, 1) == 1
}

func isTable(pte uint64) bool {
	return bits.Get64(&pte, pteTable, 1) == 1
}

func descAddr(pte uint64) uint64 {
	return pte & pteAddrMask
}

// vaIndices decomposes a 48-bit virtual address into its L0-L3 table
// indices, 9 bits each starting at bit 12.
func vaIndices(va uint64) (l0, l1, l2, l3 int) {
	l0 = int((va >> 39) & 0x1ff)
	l1 = int((va >> 30) & 0x1ff)
	l2 = int((va >> 21) & 0x1ff)
	l3 = int((va >> 12) & 0x1ff)
	return
}
