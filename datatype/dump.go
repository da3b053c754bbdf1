package datatype

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// String returns a compact constructor expression for the type.
func (t *Type) String() string {
	var b strings.Builder
	t.writeExpr(&b)
	return b.String()
}

func (t *Type) writeExpr(b *strings.Builder) {
	c := &t.contents
	if t.kind == KindElementary {
		b.WriteString(t.basic.String())
		return
	}
	b.WriteString(t.kind.String())
	b.WriteByte('(')
	switch t.kind {
	case KindContiguous:
		fmt.Fprintf(b, "%d, ", c.Count)
		c.Types[0].writeExpr(b)
	case KindVector, KindHVector:
		fmt.Fprintf(b, "%d, %d, %d, ", c.Count, c.BlockLength, c.Stride)
		c.Types[0].writeExpr(b)
	case KindIndexedBlock, KindHIndexedBlock:
		fmt.Fprintf(b, "%d, %s, ", c.BlockLength, ints(c.Displacements))
		c.Types[0].writeExpr(b)
	case KindIndexed, KindHIndexed:
		fmt.Fprintf(b, "%s, %s, ", ints(c.BlockLengths), ints(c.Displacements))
		c.Types[0].writeExpr(b)
	case KindStruct:
		fmt.Fprintf(b, "%s, %s, [", ints(c.BlockLengths), ints(c.Displacements))
		for i, base := range c.Types {
			if i > 0 {
				b.WriteString(" ")
			}
			base.writeExpr(b)
		}
		b.WriteByte(']')
	case KindResized:
		c.Types[0].writeExpr(b)
		fmt.Fprintf(b, ", %d, %d", c.LB, c.Extent)
	case KindDup:
		c.Types[0].writeExpr(b)
	case KindPair:
		b.WriteString(c.Value.String())
	}
	b.WriteByte(')')
}

func ints(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Dump writes an indented rendering of the type tree with each node's
// bounds and, for committed nodes, its segment count.
func Dump(w io.Writer, t *Type) error {
	return dump(w, t, "", "")
}

func dump(w io.Writer, t *Type, prefix, childPrefix string) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", prefix, t.Describe()); err != nil {
		return err
	}
	if t.kind == KindElementary || t.kind == KindPair {
		return nil
	}
	bases := t.contents.Types
	for i, base := range bases {
		branch, next := "├─ ", "│  "
		if i == len(bases)-1 {
			branch, next = "└─ ", "   "
		}
		label := ""
		if t.kind == KindStruct {
			label = fmt.Sprintf("[%d] %d @ %d: ", i, t.contents.BlockLengths[i], t.contents.Displacements[i])
		}
		if err := dump(w, base, childPrefix+branch+label, childPrefix+next); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders a single node without its children.
func (t *Type) Describe() string {
	c := &t.contents
	var b strings.Builder
	b.WriteString(t.kind.String())
	switch t.kind {
	case KindElementary:
		b.WriteString(" " + t.basic.String())
	case KindContiguous:
		fmt.Fprintf(&b, " count=%d", c.Count)
	case KindVector, KindHVector:
		fmt.Fprintf(&b, " count=%d blocklength=%d stride=%d", c.Count, c.BlockLength, c.Stride)
	case KindIndexedBlock, KindHIndexedBlock:
		fmt.Fprintf(&b, " blocklength=%d displacements=%s", c.BlockLength, ints(c.Displacements))
	case KindIndexed, KindHIndexed:
		fmt.Fprintf(&b, " blocklengths=%s displacements=%s", ints(c.BlockLengths), ints(c.Displacements))
	case KindStruct:
		fmt.Fprintf(&b, " blocks=%d", len(c.BlockLengths))
	case KindResized:
		fmt.Fprintf(&b, " lb=%d extent=%d", c.LB, c.Extent)
	case KindPair:
		b.WriteString(" " + c.Value.String() + "+int")
	}
	fmt.Fprintf(&b, " size=%d extent=%d lb=%d ub=%d true=[%d,%d)",
		t.size, t.extent, t.lb, t.ub, t.trueLB, t.trueUB)
	if t.IsCommitted() && t.kind != KindElementary {
		fmt.Fprintf(&b, " segments=%d", len(t.segs))
		if t.contig {
			b.WriteString(" contiguous")
		}
	}
	return b.String()
}
