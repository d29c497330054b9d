package ledger

// WireType is the wire/cable family of a wire takeoff entry.
type WireType string

const (
	WireTypeNMD  WireType = "NMD"
	WireTypeAC90 WireType = "AC90"
	WireTypeSOW  WireType = "SOW"
	WireTypeSJOW WireType = "SJOW"
)

// WireTypes lists the selectable wire types in display order.
var WireTypes = []WireType{WireTypeNMD, WireTypeAC90, WireTypeSOW, WireTypeSJOW}

// Material is the conductor material.
type Material string

const (
	MaterialCopper   Material = "CU"
	MaterialAluminum Material = "AL"
)

// Materials lists the selectable conductor materials.
var Materials = []Material{MaterialCopper, MaterialAluminum}

// CableSpecs lists the selectable gauge/conductor combinations, smallest
// first, in display order.
var CableSpecs = []string{
	"14-2", "14-3", "14-4",
	"12-2", "12-3", "12-4",
	"10-2", "10-3", "10-4",
	"8-2", "8-3", "8-4",
	"6-2", "6-3", "6-4",
	"4-2", "4-3", "4-4",
	"2-2", "2-3", "2-4",
	"1/0-3", "1/0-4",
	"2/0-3", "2/0-4",
	"3/0-3", "3/0-4",
	"4/0-3", "4/0-4",
	"250 MCM", "300 MCM", "350 MCM", "500 MCM",
}

// WireKey identifies a wire subtotal bucket. Two entries sharing the exact
// (type, cable, material) tuple sum their contributions.
type WireKey struct {
	Type     WireType
	Cable    string
	Material Material
}
