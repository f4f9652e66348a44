// Package archive persists hit sets in a versioned binary format: a small
// header with the entry count, then one optionally compressed block holding
// flat little-endian hit records, the binder name table and a roaring index
// of the binders present.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"bifa-core/hits"
	"bifa-core/model"

	"bifa/internal/output"
)

var magic = [4]byte{'B', 'I', 'F', 'A'}

// Version is the format version written by this package.
const Version uint16 = 1

// recordSize is binder u32, p f64, position i32, length u32, strand u8.
const recordSize = 4 + 8 + 4 + 4 + 1

// headerSize is magic, version u16, compression u8, reserved u8, count u32.
const headerSize = 4 + 2 + 1 + 1 + 4

var (
	ErrBadMagic   = errors.New("archive: not a hit archive")
	ErrBadVersion = errors.New("archive: unsupported version")
	ErrCorrupt    = errors.New("archive: corrupt entry")
)

// Entry is one archived hit set.
type Entry struct {
	SequenceID string
	Hits       *hits.Set
	Names      map[model.BinderID]string
	Binders    *roaring.Bitmap
}

// Name resolves a binder through the archived name table.
func (e *Entry) Name(id model.BinderID) string {
	if n, ok := e.Names[id]; ok {
		return n
	}
	return id.String()
}

// Writer appends entries to an archive stream.
type Writer struct {
	w    io.Writer
	comp Compression
}

// NewWriter returns a Writer using codec c for every entry.
func NewWriter(w io.Writer, c Compression) *Writer {
	return &Writer{w: w, comp: c}
}

// Write appends one entry. names supplies the name table; nil stores ids only.
func (w *Writer) Write(seqID string, set *hits.Set, names output.Namer) error {
	if len(seqID) > math.MaxUint16 {
		return fmt.Errorf("archive: sequence id too long (%d bytes)", len(seqID))
	}
	binders := set.Binders()

	var body bytes.Buffer
	le := binary.LittleEndian
	var rec [recordSize]byte
	for h := range set.ByPosition() {
		le.PutUint32(rec[0:], uint32(h.Binder))
		le.PutUint64(rec[4:], math.Float64bits(h.P))
		le.PutUint32(rec[12:], uint32(int32(h.Position)))
		le.PutUint32(rec[16:], uint32(h.Length))
		rec[20] = 0
		if h.Complementary {
			rec[20] = 1
		}
		body.Write(rec[:])
	}

	_ = binary.Write(&body, le, uint16(len(seqID)))
	body.WriteString(seqID)

	_ = binary.Write(&body, le, uint32(binders.GetCardinality()))
	it := binders.Iterator()
	for it.HasNext() {
		id := model.BinderID(it.Next())
		name := id.String()
		if names != nil {
			name = names.Name(id)
		}
		if len(name) > math.MaxUint16 {
			name = name[:math.MaxUint16]
		}
		_ = binary.Write(&body, le, uint32(id))
		_ = binary.Write(&body, le, uint16(len(name)))
		body.WriteString(name)
	}

	idx, err := binders.ToBytes()
	if err != nil {
		return fmt.Errorf("archive: binder index: %w", err)
	}
	_ = binary.Write(&body, le, uint32(len(idx)))
	body.Write(idx)

	block, err := compressBlock(body.Bytes(), w.comp)
	if err != nil {
		return err
	}

	var hdr [headerSize]byte
	copy(hdr[:4], magic[:])
	le.PutUint16(hdr[4:], Version)
	hdr[6] = byte(w.comp)
	le.PutUint32(hdr[8:], uint32(set.Len()))
	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.w.Write(block)
	return err
}

// Reader reads entries back from an archive stream.
type Reader struct {
	r io.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// Next returns the next entry, or io.EOF at a clean end of stream.
func (r *Reader) Next() (*Entry, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	le := binary.LittleEndian
	if v := le.Uint16(hdr[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	comp := Compression(hdr[6])
	count := le.Uint32(hdr[8:])

	var bh [blockHeaderSize]byte
	if _, err := io.ReadFull(r.r, bh[:]); err != nil {
		return nil, fmt.Errorf("%w: block header: %v", ErrCorrupt, err)
	}
	raw, stored, err := blockSizes(bh[:])
	if err != nil {
		return nil, err
	}
	n := raw
	if stored != 0 {
		n = stored
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, fmt.Errorf("%w: block: %v", ErrCorrupt, err)
	}
	if stored != 0 {
		if data, err = decompressBlock(raw, data, comp); err != nil {
			return nil, err
		}
	}
	return decodeBody(data, count)
}

func decodeBody(data []byte, count uint32) (*Entry, error) {
	le := binary.LittleEndian
	if uint64(len(data)) < uint64(count)*recordSize {
		return nil, fmt.Errorf("%w: %d records do not fit in %d bytes", ErrCorrupt, count, len(data))
	}
	hs := make([]hits.Hit, count)
	for i := range hs {
		rec := data[i*recordSize:]
		hs[i] = hits.Hit{
			Binder:        model.BinderID(le.Uint32(rec[0:])),
			P:             math.Float64frombits(le.Uint64(rec[4:])),
			Position:      int(int32(le.Uint32(rec[12:]))),
			Length:        int(le.Uint32(rec[16:])),
			Complementary: rec[20] == 1,
		}
	}
	rest := bytes.NewReader(data[int(count)*recordSize:])

	var idLen uint16
	if err := binary.Read(rest, le, &idLen); err != nil {
		return nil, fmt.Errorf("%w: sequence id: %v", ErrCorrupt, err)
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(rest, id); err != nil {
		return nil, fmt.Errorf("%w: sequence id: %v", ErrCorrupt, err)
	}

	var nNames uint32
	if err := binary.Read(rest, le, &nNames); err != nil {
		return nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
	}
	if int64(nNames)*6 > int64(rest.Len()) {
		return nil, fmt.Errorf("%w: name table of %d entries is truncated", ErrCorrupt, nNames)
	}
	names := make(map[model.BinderID]string, nNames)
	for range nNames {
		var b uint32
		var l uint16
		if err := binary.Read(rest, le, &b); err != nil {
			return nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
		}
		if err := binary.Read(rest, le, &l); err != nil {
			return nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
		}
		name := make([]byte, l)
		if _, err := io.ReadFull(rest, name); err != nil {
			return nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
		}
		names[model.BinderID(b)] = string(name)
	}

	var idxLen uint32
	if err := binary.Read(rest, le, &idxLen); err != nil {
		return nil, fmt.Errorf("%w: binder index: %v", ErrCorrupt, err)
	}
	if int64(idxLen) != int64(rest.Len()) {
		return nil, fmt.Errorf("%w: binder index is %d bytes, %d remain", ErrCorrupt, idxLen, rest.Len())
	}
	idx := make([]byte, idxLen)
	_, _ = io.ReadFull(rest, idx)
	binders := roaring.New()
	if err := binders.UnmarshalBinary(idx); err != nil {
		return nil, fmt.Errorf("%w: binder index: %v", ErrCorrupt, err)
	}

	set := hits.NewSet(len(hs))
	if err := set.InsertAll(hs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !set.Binders().Equals(binders) {
		return nil, fmt.Errorf("%w: binder index disagrees with records", ErrCorrupt)
	}
	return &Entry{SequenceID: string(id), Hits: set, Names: names, Binders: binders}, nil
}

// ReadAll reads every entry of r.
func ReadAll(r io.Reader) ([]*Entry, error) {
	ar := NewReader(r)
	var out []*Entry
	for {
		e, err := ar.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}
