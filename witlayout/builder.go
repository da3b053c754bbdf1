package witlayout

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
	"github.com/wippyai/typerep/internal/abi"
)

type entry struct {
	dt    *datatype.Type
	size  int64
	align int64
}

// Builder converts WIT types to datatypes. Types defined once are built
// once; every datatype the Builder creates belongs to it until Release.
type Builder struct {
	cache  map[*wit.TypeDef]entry
	owned  []*datatype.Type
	ptrLen *datatype.Type
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		cache: make(map[*wit.TypeDef]entry),
	}
}

// Build returns the committed datatype describing one value of t in linear
// memory. Its extent is the canonical size of t. Callers that keep the
// result past Release must Retain it.
func (b *Builder) Build(t wit.Type) (*datatype.Type, error) {
	e, err := b.layout(t)
	if err != nil {
		return nil, err
	}
	if err := e.dt.Commit(); err != nil {
		return nil, err
	}
	return e.dt, nil
}

// Size returns the canonical size and alignment of t.
func (b *Builder) Size(t wit.Type) (size, align int64, err error) {
	e, err := b.layout(t)
	if err != nil {
		return 0, 0, err
	}
	return e.size, e.align, nil
}

// Release drops the Builder's references to every datatype it created.
func (b *Builder) Release() error {
	var first error
	for _, dt := range b.owned {
		if err := dt.Free(); err != nil && first == nil {
			first = err
		}
	}
	b.owned = nil
	b.ptrLen = nil
	clear(b.cache)
	return first
}

func (b *Builder) own(dt *datatype.Type, err error) (*datatype.Type, error) {
	if err != nil {
		return nil, err
	}
	b.owned = append(b.owned, dt)
	return dt, nil
}

func (b *Builder) layout(t wit.Type) (entry, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return scalar(datatype.Bool), nil
	case wit.U8:
		return scalar(datatype.Uint8), nil
	case wit.S8:
		return scalar(datatype.Int8), nil
	case wit.U16:
		return scalar(datatype.Uint16), nil
	case wit.S16:
		return scalar(datatype.Int16), nil
	case wit.U32, wit.Char:
		return scalar(datatype.Uint32), nil
	case wit.S32:
		return scalar(datatype.Int32), nil
	case wit.U64:
		return scalar(datatype.Uint64), nil
	case wit.S64:
		return scalar(datatype.Int64), nil
	case wit.F32:
		return scalar(datatype.Float32), nil
	case wit.F64:
		return scalar(datatype.Float64), nil
	case wit.String:
		return b.pointerLength()
	case *wit.TypeDef:
		return b.typeDef(typ)
	case nil:
		return entry{}, typerrors.InvalidArgument(typerrors.PhaseConstruct, []string{"wit"}, "nil WIT type")
	default:
		return entry{}, unsupported(t)
	}
}

func (b *Builder) typeDef(t *wit.TypeDef) (entry, error) {
	if cached, ok := b.cache[t]; ok {
		return cached, nil
	}

	var e entry
	var err error
	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		e, err = b.sequence(types)
	case *wit.Tuple:
		e, err = b.sequence(kind.Types)
	case *wit.List:
		e, err = b.pointerLength()
	case *wit.Enum:
		e = scalar(discriminant(len(kind.Cases)))
	case *wit.Flags:
		e, err = b.flags(len(kind.Flags))
	case *wit.Option:
		e, err = b.option(kind.Type)
	case *wit.Result:
		e, err = b.result(kind)
	case *wit.Variant:
		e, err = b.variant(kind)
	case *wit.Own, *wit.Borrow:
		e = scalar(datatype.Uint32)
	case wit.Type:
		e, err = b.layout(kind)
	default:
		err = unsupported(t)
	}
	if err != nil {
		return entry{}, err
	}

	b.cache[t] = e
	return e, nil
}

func scalar(dt *datatype.Type) entry {
	return entry{dt: dt, size: dt.Size(), align: dt.Alignment()}
}

// pointerLength is the (u32 offset, u32 length) pair of strings and lists.
func (b *Builder) pointerLength() (entry, error) {
	if b.ptrLen == nil {
		dt, err := b.own(datatype.Contiguous(2, datatype.Uint32))
		if err != nil {
			return entry{}, err
		}
		b.ptrLen = dt
	}
	return entry{dt: b.ptrLen, size: 8, align: 4}, nil
}

// sequence lays out record fields and tuple members in order, each at its
// natural alignment.
func (b *Builder) sequence(types []wit.Type) (entry, error) {
	if len(types) == 0 {
		return b.empty()
	}

	blocklens := make([]int64, len(types))
	displs := make([]int64, len(types))
	dts := make([]*datatype.Type, len(types))
	maxAlign := int64(1)
	offset := int64(0)

	for i, typ := range types {
		e, err := b.layout(typ)
		if err != nil {
			return entry{}, err
		}
		offset = abi.AlignTo(offset, e.align)
		blocklens[i], displs[i], dts[i] = 1, offset, e.dt
		maxAlign = max(maxAlign, e.align)
		offset += e.size
	}

	dt, err := b.own(datatype.Struct(blocklens, displs, dts))
	if err != nil {
		return entry{}, err
	}
	return b.fit(dt, abi.AlignTo(offset, maxAlign), maxAlign)
}

func (b *Builder) flags(n int) (entry, error) {
	switch {
	case n == 0:
		return b.empty()
	case n <= 8:
		return scalar(datatype.Uint8), nil
	case n <= 16:
		return scalar(datatype.Uint16), nil
	}
	words := int64(n+31) / 32
	dt, err := b.own(datatype.Contiguous(words, datatype.Uint32))
	if err != nil {
		return entry{}, err
	}
	return entry{dt: dt, size: 4 * words, align: 4}, nil
}

func (b *Builder) option(inner wit.Type) (entry, error) {
	e, err := b.layout(inner)
	if err != nil {
		return entry{}, err
	}
	return b.tagged(datatype.Uint8, e.dt, e.size, e.align)
}

func (b *Builder) result(r *wit.Result) (entry, error) {
	var size, align int64 = 0, 1
	for _, typ := range []wit.Type{r.OK, r.Err} {
		if typ == nil {
			continue
		}
		e, err := b.layout(typ)
		if err != nil {
			return entry{}, err
		}
		size, align = max(size, e.size), max(align, e.align)
	}
	return b.tagged(datatype.Uint8, nil, size, align)
}

func (b *Builder) variant(v *wit.Variant) (entry, error) {
	if len(v.Cases) == 0 {
		return b.empty()
	}
	var size, align int64 = 0, 1
	for _, c := range v.Cases {
		if c.Type == nil {
			continue
		}
		e, err := b.layout(c.Type)
		if err != nil {
			return entry{}, err
		}
		size, align = max(size, e.size), max(align, e.align)
	}
	return b.tagged(discriminant(len(v.Cases)), nil, size, align)
}

// tagged lays out a discriminant followed by a payload. Without a payload
// type the payload is described as raw bytes.
func (b *Builder) tagged(disc, payload *datatype.Type, size, align int64) (entry, error) {
	maxAlign := max(disc.Size(), align)
	payloadOff := abi.AlignTo(disc.Size(), maxAlign)
	total := abi.AlignTo(payloadOff+size, maxAlign)

	if size == 0 {
		dt, err := b.own(datatype.Struct([]int64{1}, []int64{0}, []*datatype.Type{disc}))
		if err != nil {
			return entry{}, err
		}
		return b.fit(dt, total, maxAlign)
	}

	if payload == nil {
		p, err := b.own(datatype.Contiguous(size, datatype.Byte))
		if err != nil {
			return entry{}, err
		}
		payload = p
	}
	dt, err := b.own(datatype.Struct(
		[]int64{1, 1},
		[]int64{0, payloadOff},
		[]*datatype.Type{disc, payload},
	))
	if err != nil {
		return entry{}, err
	}
	return b.fit(dt, total, maxAlign)
}

func (b *Builder) empty() (entry, error) {
	dt, err := b.own(datatype.Contiguous(0, datatype.Byte))
	if err != nil {
		return entry{}, err
	}
	return entry{dt: dt, size: 0, align: 1}, nil
}

// fit resizes dt when its native extent differs from the canonical size.
func (b *Builder) fit(dt *datatype.Type, size, align int64) (entry, error) {
	if dt.LB() != 0 || dt.Extent() != size {
		r, err := b.own(datatype.Resized(dt, 0, size))
		if err != nil {
			return entry{}, err
		}
		dt = r
	}
	return entry{dt: dt, size: size, align: align}, nil
}

// discriminant returns the smallest unsigned type that numbers n cases.
func discriminant(n int) *datatype.Type {
	switch {
	case n <= 1<<8:
		return datatype.Uint8
	case n <= 1<<16:
		return datatype.Uint16
	}
	return datatype.Uint32
}

func unsupported(t any) error {
	return typerrors.New(typerrors.PhaseConstruct, typerrors.KindInvalidArgument).
		Path("wit").
		Value(t).
		Detail("no linear memory layout for %T", t).
		Build()
}
