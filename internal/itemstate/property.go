package itemstate

// PropertyType enumerates the wire-encoded property value types
// (spec.md §3), 0..12, four-bit encoded in the bundle format.
type PropertyType uint8

const (
	TypeString PropertyType = iota
	TypeBinary
	TypeLong
	TypeDouble
	TypeDate
	TypeBoolean
	TypeName
	TypePath
	TypeReference
	TypeWeakReference
	TypeURI
	TypeDecimal
	// typeReserved12 is not part of the 0..11 wire range above; the
	// format reserves index 12 but this implementation does not emit
	// it. Kept to document the reserved slot.
	typeReserved12
)

const maxPropertyType = TypeDecimal

// Valid reports whether t is one of the defined wire types.
func (t PropertyType) Valid() bool {
	return t <= maxPropertyType
}

// Value is a variant property value. Exactly one field is meaningful,
// selected by the owning PropertyState's Type.
type Value struct {
	String string
	Long   int64
	Double float64
	Bool   bool
	Name   Name
	Node   NodeId // REFERENCE / WEAKREFERENCE

	// Binary placement: either Small is populated, or BlobID names an
	// entry in an external BlobStore or DataStore (InDataStore
	// discriminates which). Exactly one of Small/BlobID is meaningful.
	Small       []byte
	BlobID      string
	InDataStore bool

	// Decimal is the canonical string form of a DECIMAL value;
	// DecimalPresent distinguishes an absent decimal from "0".
	Decimal        string
	DecimalPresent bool
}

// PropertyState is the in-memory aggregate for one property.
type PropertyState struct {
	ID          PropertyId
	Type        PropertyType
	MultiValued bool
	ModCount    uint32
	Values      []Value
}

// NodeStatus tracks a NodeState's lifecycle position.
type NodeStatus int

const (
	StatusNew NodeStatus = iota
	StatusExisting
	StatusModified
	StatusRemoved
)

// ChildEntry is one entry in a NodeState's ordered child list. Its SNS
// index is not stored: it is the 1-based count of same-named
// predecessors in the owning NodeState's Children slice, computed by
// NodeState.snsIndexLocked (exposed through FindChild/FindChildByID).
type ChildEntry struct {
	Name Name
	ID   NodeId
}
