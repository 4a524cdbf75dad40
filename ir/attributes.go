package ir

import (
	"sort"
	"strconv"
	"strings"
)

// AttrKind is an enum attribute. The values are the bitcode attribute
// kind codes.
type AttrKind uint32

const (
	AttrNone AttrKind = iota
	AttrAlignment
	AttrAlwaysInline
	AttrByVal
	AttrInlineHint
	AttrInReg
	AttrMinSize
	AttrNaked
	AttrNest
	AttrNoAlias
	AttrNoBuiltin
	AttrNoCapture
	AttrNoDuplicate
	AttrNoImplicitFloat
	AttrNoInline
	AttrNonLazyBind
	AttrNoRedZone
	AttrNoReturn
	AttrNoUnwind
	AttrOptimizeForSize
	AttrReadNone
	AttrReadOnly
	AttrReturned
	AttrReturnsTwice
	AttrSExt
	AttrStackAlignment
	AttrStackProtect
	AttrStackProtectReq
	AttrStackProtectStrong
	AttrStructRet
	AttrSanitizeAddress
	AttrSanitizeThread
	AttrSanitizeMemory
	AttrUWTable
	AttrZExt
	AttrBuiltin
	AttrCold
	AttrOptimizeNone
	AttrInAlloca
	AttrNonNull
	AttrJumpTable
	AttrDereferenceable
	AttrDereferenceableOrNull
	AttrConvergent
	AttrSafeStack
	AttrArgMemOnly

	// LastAttrKind is the highest known kind.
	LastAttrKind = AttrArgMemOnly
)

var attrKindNames = [...]string{
	AttrAlignment:             "align",
	AttrAlwaysInline:          "alwaysinline",
	AttrByVal:                 "byval",
	AttrInlineHint:            "inlinehint",
	AttrInReg:                 "inreg",
	AttrMinSize:               "minsize",
	AttrNaked:                 "naked",
	AttrNest:                  "nest",
	AttrNoAlias:               "noalias",
	AttrNoBuiltin:             "nobuiltin",
	AttrNoCapture:             "nocapture",
	AttrNoDuplicate:           "noduplicate",
	AttrNoImplicitFloat:       "noimplicitfloat",
	AttrNoInline:              "noinline",
	AttrNonLazyBind:           "nonlazybind",
	AttrNoRedZone:             "noredzone",
	AttrNoReturn:              "noreturn",
	AttrNoUnwind:              "nounwind",
	AttrOptimizeForSize:       "optsize",
	AttrReadNone:              "readnone",
	AttrReadOnly:              "readonly",
	AttrReturned:              "returned",
	AttrReturnsTwice:          "returns_twice",
	AttrSExt:                  "signext",
	AttrStackAlignment:        "alignstack",
	AttrStackProtect:          "ssp",
	AttrStackProtectReq:       "sspreq",
	AttrStackProtectStrong:    "sspstrong",
	AttrStructRet:             "sret",
	AttrSanitizeAddress:       "sanitize_address",
	AttrSanitizeThread:        "sanitize_thread",
	AttrSanitizeMemory:        "sanitize_memory",
	AttrUWTable:               "uwtable",
	AttrZExt:                  "zeroext",
	AttrBuiltin:               "builtin",
	AttrCold:                  "cold",
	AttrOptimizeNone:          "optnone",
	AttrInAlloca:              "inalloca",
	AttrNonNull:               "nonnull",
	AttrJumpTable:             "jumptable",
	AttrDereferenceable:       "dereferenceable",
	AttrDereferenceableOrNull: "dereferenceable_or_null",
	AttrConvergent:            "convergent",
	AttrSafeStack:             "safestack",
	AttrArgMemOnly:            "argmemonly",
}

func (k AttrKind) String() string {
	if k > AttrNone && k <= LastAttrKind {
		return attrKindNames[k]
	}
	return "attr(" + strconv.Itoa(int(k)) + ")"
}

// HasIntValue is true for kinds that carry an integer.
func (k AttrKind) HasIntValue() bool {
	switch k {
	case AttrAlignment, AttrStackAlignment, AttrDereferenceable, AttrDereferenceableOrNull:
		return true
	}
	return false
}

// Attribute is an enum attribute, an enum attribute with an integer value,
// or a string key with an optional value.
type Attribute struct {
	Kind  AttrKind
	Int   uint64
	Key   string
	Value string
}

func EnumAttr(k AttrKind) Attribute          { return Attribute{Kind: k} }
func IntAttr(k AttrKind, v uint64) Attribute { return Attribute{Kind: k, Int: v} }
func StringAttr(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func (a Attribute) IsString() bool { return a.Kind == AttrNone }

func (a Attribute) String() string {
	if a.IsString() {
		if a.Value == "" {
			return strconv.Quote(a.Key)
		}
		return strconv.Quote(a.Key) + "=" + strconv.Quote(a.Value)
	}
	switch a.Kind {
	case AttrAlignment:
		return "align " + strconv.FormatUint(a.Int, 10)
	case AttrStackAlignment:
		return "alignstack(" + strconv.FormatUint(a.Int, 10) + ")"
	case AttrDereferenceable, AttrDereferenceableOrNull:
		return a.Kind.String() + "(" + strconv.FormatUint(a.Int, 10) + ")"
	}
	return a.Kind.String()
}

// Attribute indices within an AttributeList.
const (
	ReturnIndex   uint32 = 0
	FunctionIndex uint32 = ^uint32(0)
)

// ParamIndex returns the attribute index of parameter i.
func ParamIndex(i int) uint32 { return uint32(i) + 1 }

// AttributeSet is the attributes at one index: the return value, the
// function, or one parameter.
type AttributeSet struct {
	Index uint32
	Attrs []Attribute
}

// Has reports whether the set contains the enum attribute k.
func (s AttributeSet) Has(k AttrKind) bool {
	_, ok := s.Get(k)
	return ok
}

// Get returns the attribute of kind k.
func (s AttributeSet) Get(k AttrKind) (Attribute, bool) {
	for _, a := range s.Attrs {
		if a.Kind == k && !a.IsString() {
			return a, true
		}
	}
	return Attribute{}, false
}

// GetString returns the string attribute with the given key.
func (s AttributeSet) GetString(key string) (Attribute, bool) {
	for _, a := range s.Attrs {
		if a.IsString() && a.Key == key {
			return a, true
		}
	}
	return Attribute{}, false
}

func (s AttributeSet) String() string {
	parts := make([]string, len(s.Attrs))
	for i, a := range s.Attrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// AttributeList holds the attribute sets of a function or call, ordered by
// index with the function set last.
type AttributeList struct {
	sets []AttributeSet
}

// NewAttributeList merges sets by index. Attributes of sets with the same
// index are concatenated.
func NewAttributeList(sets ...AttributeSet) AttributeList {
	merged := make(map[uint32]int)
	var out []AttributeSet
	for _, s := range sets {
		if i, ok := merged[s.Index]; ok {
			out[i].Attrs = append(out[i].Attrs, s.Attrs...)
			continue
		}
		merged[s.Index] = len(out)
		out = append(out, AttributeSet{Index: s.Index, Attrs: append([]Attribute(nil), s.Attrs...)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		// FunctionIndex is the largest value, so it sorts last.
		return out[i].Index < out[j].Index
	})
	return AttributeList{sets: out}
}

func (l AttributeList) IsEmpty() bool        { return len(l.sets) == 0 }
func (l AttributeList) Sets() []AttributeSet { return l.sets }

// At returns the set at index, which is empty if there is none.
func (l AttributeList) At(index uint32) AttributeSet {
	for _, s := range l.sets {
		if s.Index == index {
			return s
		}
	}
	return AttributeSet{Index: index}
}

func (l AttributeList) FnAttrs() AttributeSet         { return l.At(FunctionIndex) }
func (l AttributeList) RetAttrs() AttributeSet        { return l.At(ReturnIndex) }
func (l AttributeList) ParamAttrs(i int) AttributeSet { return l.At(ParamIndex(i)) }

// HasFnAttr reports whether the function set contains k.
func (l AttributeList) HasFnAttr(k AttrKind) bool { return l.FnAttrs().Has(k) }
