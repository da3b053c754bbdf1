package main

import (
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/typerep/datatype"
	"github.com/wippyai/typerep/envelope"
	"github.com/wippyai/typerep/external"
	"github.com/wippyai/typerep/portable"
	"github.com/wippyai/typerep/stream"
	"github.com/wippyai/typerep/typedef"
)

type options struct {
	catalog  string
	typeName string
	count    int64
	chunk    int64
	maxIOV   int
	list     bool
	dump     bool
	pack     bool
	iov      bool
	extern   bool
	flatten  bool
	envelope bool
	verbose  bool
	plain    bool
}

func main() {
	var o options
	flag.StringVar(&o.catalog, "catalog", "", "Path to a TOML type catalog")
	flag.StringVar(&o.typeName, "type", "", "Type to inspect (catalog or elementary name)")
	flag.Int64Var(&o.count, "count", 0, "Instances to transfer (default from catalog options)")
	flag.Int64Var(&o.chunk, "chunk", 0, "Bytes per pack step (default from catalog options)")
	flag.IntVar(&o.maxIOV, "max-iov", 0, "Descriptors per iov step (default from catalog options)")
	flag.BoolVar(&o.list, "list", false, "List catalog types and exit")
	flag.BoolVar(&o.dump, "dump", false, "Print the type tree")
	flag.BoolVar(&o.pack, "pack", false, "Walk a chunked pack of a patterned buffer")
	flag.BoolVar(&o.iov, "iov", false, "Walk the segment descriptors of the region")
	flag.BoolVar(&o.extern, "external", false, "Show the external32 encoding of the region")
	flag.BoolVar(&o.flatten, "flatten", false, "Show the portable descriptor and check it round-trips")
	flag.BoolVar(&o.envelope, "envelope", false, "Seal the region into a self-describing message and reopen it")
	flag.BoolVar(&o.verbose, "v", false, "Verbose development logging")
	flag.BoolVar(&o.plain, "plain", false, "Disable styled output")
	interactive := flag.Bool("i", false, "Interactive mode with TUI")
	flag.Parse()

	if o.catalog == "" {
		fmt.Fprintln(os.Stderr, "Usage: typerep -catalog <types.toml> -list")
		fmt.Fprintln(os.Stderr, "       typerep -catalog <types.toml> -type name [-dump] [-pack] [-iov] [-external] [-flatten] [-envelope]")
		fmt.Fprintln(os.Stderr, "       typerep -catalog <types.toml> -i  (interactive mode)")
		os.Exit(1)
	}

	if o.verbose {
		installLogger(zap.Must(zap.NewDevelopment()))
	}

	cat, err := typedef.Load(o.catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cat.Release() }()

	if !o.verbose {
		if l, err := levelLogger(cat.Options.LogLevel); err == nil {
			installLogger(l)
		}
	}
	o.applyDefaults(cat.Options)

	if *interactive {
		if err := runInteractive(cat, o); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Stdout, cat, o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *options) applyDefaults(def typedef.Options) {
	if o.count <= 0 {
		o.count = def.Count
	}
	if o.chunk <= 0 {
		o.chunk = def.Chunk
	}
	if o.maxIOV <= 0 {
		o.maxIOV = def.MaxIOV
	}
	if !o.plain && !term.IsTerminal(int(os.Stdout.Fd())) {
		o.plain = true
	}
}

func installLogger(l *zap.Logger) {
	datatype.SetLogger(l)
	stream.SetLogger(l)
	portable.SetLogger(l)
	envelope.SetLogger(l)
	typedef.SetLogger(l)
}

func levelLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	return cfg.Build()
}

func run(w io.Writer, cat *typedef.Catalog, o options) error {
	if o.list || o.typeName == "" {
		return listTypes(w, cat, o)
	}

	dt, err := cat.Lookup(o.typeName)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s = %s\n", o.typeName, dt)
	fmt.Fprintf(w, "  size=%d extent=%d lb=%d ub=%d true=[%d,%d) segments=%d contiguous=%v\n",
		dt.Size(), dt.Extent(), dt.LB(), dt.UB(), dt.TrueLB(), dt.TrueUB(), len(dt.Segments()), dt.IsContiguous())

	all := !o.dump && !o.pack && !o.iov && !o.extern && !o.flatten && !o.envelope
	if o.dump || all {
		fmt.Fprintln(w)
		fmt.Fprint(w, renderDump(dt, !o.plain))
	}
	if o.pack || all {
		fmt.Fprintln(w)
		if err := packWalk(w, dt, o); err != nil {
			return err
		}
	}
	if o.iov {
		fmt.Fprintln(w)
		if err := iovWalk(w, dt, o); err != nil {
			return err
		}
	}
	if o.extern || all {
		fmt.Fprintln(w)
		if err := externalView(w, dt, o); err != nil {
			return err
		}
	}
	if o.flatten {
		fmt.Fprintln(w)
		if err := flattenView(w, dt); err != nil {
			return err
		}
	}
	if o.envelope {
		fmt.Fprintln(w)
		if err := envelopeView(w, dt, o); err != nil {
			return err
		}
	}
	return nil
}

func listTypes(w io.Writer, cat *typedef.Catalog, o options) error {
	for _, name := range cat.Names() {
		dt, err := cat.Lookup(name)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("%-20s", name)
		if !o.plain {
			label = funcStyle.Render(label)
		}
		fmt.Fprintf(w, "%s size=%-6d extent=%-6d segments=%-4d %s\n",
			label, dt.Size(), dt.Extent(), len(dt.Segments()), dt)
	}
	return nil
}

// patterned returns memory for count instances of dt with every byte set
// to a value derived from its index.
func patterned(count int64, dt *datatype.Type) stream.Buffer {
	origin := max(0, -dt.TrueLB())
	last := max(0, count-1) * dt.Extent()
	data := make([]byte, max(0, origin+last+dt.TrueUB()))
	for i := range data {
		data[i] = byte(i)
	}
	return stream.At(data, origin)
}

func packWalk(w io.Writer, dt *datatype.Type, o options) error {
	buf := patterned(o.count, dt)
	p, err := stream.NewPacker(buf, o.count, dt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "pack count=%d chunk=%d image=%d bytes\n", o.count, o.chunk, p.Remaining())

	chunk := make([]byte, o.chunk)
	for step := 1; p.Remaining() > 0; step++ {
		off := p.Offset()
		n, err := p.Read(chunk)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  step %d offset=%d bytes=%d % x\n", step, off, n, preview(chunk[:n]))
	}
	return nil
}

func iovWalk(w io.Writer, dt *datatype.Type, o options) error {
	buf := patterned(o.count, dt)
	total, err := stream.IOVLen(o.count, dt, -1)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "iov count=%d segments=%d batch=%d\n", o.count, total, o.maxIOV)

	iov := make([]stream.IOV, o.maxIOV)
	var off int64
	for {
		n, err := stream.ToIOV(buf, o.count, dt, off, iov)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		for i, v := range iov[:n] {
			fmt.Fprintf(w, "  [%d] addr=%d len=%d\n", off+int64(i), v.Offset-buf.Origin, v.Len)
		}
		off += int64(n)
	}
}

func externalView(w io.Writer, dt *datatype.Type, o options) error {
	size, err := external.SizeExternal32(dt)
	if err != nil {
		fmt.Fprintf(w, "external32: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "external32 size=%d per instance (native size=%d extent=%d)\n", size, dt.Size(), dt.Extent())

	out, err := external.Marshal(patterned(o.count, dt), o.count, dt)
	if err != nil {
		fmt.Fprintf(w, "external32: %v\n", err)
		return nil
	}
	fmt.Fprint(w, hex.Dump(preview(out)))
	return nil
}

func flattenView(w io.Writer, dt *datatype.Type) error {
	desc, err := portable.Marshal(dt)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "descriptor %d bytes\n", len(desc))
	fmt.Fprint(w, hex.Dump(desc))

	back, err := portable.Unflatten(desc)
	if err != nil {
		return err
	}
	defer func() { _ = back.Free() }()

	same := back.Extent() == dt.Extent() && equalSegments(back.Segments(), dt.Segments())
	fmt.Fprintf(w, "round trip: %s (same layout: %v)\n", back, same)
	return nil
}

func envelopeView(w io.Writer, dt *datatype.Type, o options) error {
	src := patterned(o.count, dt)
	want, err := stream.Marshal(src, o.count, dt)
	if err != nil {
		return err
	}

	for _, enc := range []envelope.Encoding{envelope.Native, envelope.External32} {
		for _, comp := range []envelope.Compression{envelope.None, envelope.Zstd} {
			msg, err := envelope.Seal(src, o.count, dt, envelope.SealOptions{Encoding: enc, Compression: comp})
			if err != nil {
				fmt.Fprintf(w, "envelope %s/%s: %v\n", enc, comp, err)
				continue
			}
			ok, err := reopen(msg, src, o.count, want)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "envelope %s/%s frame=%d bytes restored=%v\n", enc, comp, len(msg), ok)
		}
	}
	return nil
}

// reopen opens msg, unpacks it into fresh memory shaped like src and
// reports whether the packed image survived.
func reopen(msg []byte, src stream.Buffer, count int64, want []byte) (bool, error) {
	m, err := envelope.Open(msg)
	if err != nil {
		return false, err
	}
	defer func() { _ = m.Release() }()

	dst := stream.At(make([]byte, len(src.Data)), src.Origin)
	if _, err := m.Unpack(dst); err != nil {
		return false, err
	}
	got, err := stream.Marshal(dst, count, m.Type)
	if err != nil {
		return false, err
	}
	return bytes.Equal(got, want), nil
}

func equalSegments(a, b []datatype.Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const previewLen = 64

func preview(b []byte) []byte {
	if len(b) > previewLen {
		return b[:previewLen]
	}
	return b
}
