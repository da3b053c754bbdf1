package datatype

// Kind identifies the constructor that produced a type.
type Kind uint8

const (
	KindElementary Kind = iota
	KindContiguous
	KindVector
	KindHVector
	KindIndexedBlock
	KindHIndexedBlock
	KindIndexed
	KindHIndexed
	KindStruct
	KindResized
	KindDup
	KindPair
)

var kindNames = [...]string{
	KindElementary:    "elementary",
	KindContiguous:    "contiguous",
	KindVector:        "vector",
	KindHVector:       "hvector",
	KindIndexedBlock:  "indexed_block",
	KindHIndexedBlock: "hindexed_block",
	KindIndexed:       "indexed",
	KindHIndexed:      "hindexed",
	KindStruct:        "struct",
	KindResized:       "resized",
	KindDup:           "dup",
	KindPair:          "pair",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// ByteDisplacements reports whether displacements (or the stride) of this
// kind are byte offsets rather than multiples of the base extent.
func (k Kind) ByteDisplacements() bool {
	switch k {
	case KindHVector, KindHIndexedBlock, KindHIndexed, KindStruct:
		return true
	default:
		return false
	}
}
