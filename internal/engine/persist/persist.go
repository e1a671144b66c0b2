// Package persist reads and writes timeline project files.
//
// The on-disk format is a fixed header followed by a stream of typed,
// length-prefixed records:
//
//	[4 bytes]  Magic "CUTL"
//	[2 bytes]  Major version (little endian)
//	[2 bytes]  Minor version
//	[2 bytes]  Flags (reserved, zero)
//	[1 byte]   Format tag (1 = binary)
//	[8 bytes]  Save time (Unix seconds, informational only)
//	[4 bytes]  CRC-32 (IEEE) of the record payload
//	[records...]
//	  [1 byte]  Record type
//	  [4 bytes] Body length
//	  [n bytes] Body
//
// A reader skips record types it does not know and ignores trailing
// bytes inside records it does, so a file written by a newer minor
// version still loads. A higher major version does not.
package persist

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cutlist/internal/engine/store"
	"github.com/dshills/cutlist/internal/engine/timecode"
	"github.com/dshills/cutlist/internal/engine/timeline"
)

// Format version. Bump the minor for added fields or record types, the
// major for anything a current reader would misparse.
const (
	formatMajor uint16 = 1
	formatMinor uint16 = 0
)

const formatBinary byte = 1

var fileMagic = []byte("CUTL")

// Persistence errors.
var (
	ErrCorruptData         = errors.New("corrupt project data")
	ErrVersionIncompatible = errors.New("incompatible project version")
)

// Record types.
const (
	recEnd        byte = 0
	recTrack      byte = 1
	recClip       byte = 2
	recMarker     byte = 3
	recTransition byte = 4
	recPlayhead   byte = 5
)

// Maximum lengths accepted when reading, to bound allocations from
// malformed files.
const (
	maxStringLength = 16 * 1024 * 1024
	maxRecordLength = 64 * 1024 * 1024
)

// Save writes the timeline to w.
func Save(m *timeline.Model, w io.Writer) error {
	payload, err := encodePayload(m)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(fileMagic); err != nil {
		return err
	}
	for _, v := range []uint16{formatMajor, formatMinor, 0} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := bw.WriteByte(formatBinary); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, time.Now().Unix()); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return err
	}
	if _, err := bw.Write(payload); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads a timeline from r. The model is built fresh and returned
// only on full success, so a failed load never leaves a half-populated
// timeline behind.
func Load(r io.Reader) (*timeline.Model, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read header: %w", ErrCorruptData)
	}
	if !bytes.Equal(magic, fileMagic) {
		return nil, fmt.Errorf("bad magic %q: %w", magic, ErrCorruptData)
	}

	var major, minor, flags uint16
	for _, p := range []*uint16{&major, &minor, &flags} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read header: %w", ErrCorruptData)
		}
	}
	if major > formatMajor {
		return nil, fmt.Errorf("file version %d.%d, engine reads up to %d: %w",
			major, minor, formatMajor, ErrVersionIncompatible)
	}

	tag, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", ErrCorruptData)
	}
	if tag != formatBinary {
		return nil, fmt.Errorf("unknown format tag %d: %w", tag, ErrCorruptData)
	}

	var savedAt int64 // informational, not validated
	if err := binary.Read(br, binary.LittleEndian, &savedAt); err != nil {
		return nil, fmt.Errorf("read header: %w", ErrCorruptData)
	}

	var sum uint32
	if err := binary.Read(br, binary.LittleEndian, &sum); err != nil {
		return nil, fmt.Errorf("read header: %w", ErrCorruptData)
	}

	payload, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	if crc32.ChecksumIEEE(payload) != sum {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrCorruptData)
	}

	return decodePayload(payload)
}

// encodePayload serializes the model's records: tracks first so clips
// can reference them, then clips, markers, transitions, and playhead.
func encodePayload(m *timeline.Model) ([]byte, error) {
	var payload bytes.Buffer

	for _, id := range m.Tracks() {
		t, ok := m.Track(id)
		if !ok {
			continue
		}
		if err := writeRecord(&payload, recTrack, encodeTrack(id, t)); err != nil {
			return nil, err
		}
	}
	for _, trackID := range m.Tracks() {
		for _, id := range m.ClipsOnTrack(trackID) {
			c, ok := m.Clip(id)
			if !ok {
				continue
			}
			if err := writeRecord(&payload, recClip, encodeClip(id, c)); err != nil {
				return nil, err
			}
		}
	}
	for _, id := range m.Markers() {
		mk, ok := m.Marker(id)
		if !ok {
			continue
		}
		if err := writeRecord(&payload, recMarker, encodeMarker(id, mk)); err != nil {
			return nil, err
		}
	}
	for _, id := range m.Transitions() {
		tr, ok := m.Transition(id)
		if !ok {
			continue
		}
		if err := writeRecord(&payload, recTransition, encodeTransition(id, tr)); err != nil {
			return nil, err
		}
	}

	var ph bytes.Buffer
	writeI64(&ph, int64(m.Playhead()))
	if err := writeRecord(&payload, recPlayhead, ph.Bytes()); err != nil {
		return nil, err
	}

	if err := writeRecord(&payload, recEnd, nil); err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

// decodePayload rebuilds a model from the record stream. File entity
// IDs are remapped to fresh store IDs; cross-references (clip to
// track, transition to clip) resolve through the remap tables.
func decodePayload(payload []byte) (*timeline.Model, error) {
	m := timeline.New()
	tracks := make(map[uint64]store.ID)
	clips := make(map[uint64]store.ID)

	// Parent links may point at tracks that appear later in the file.
	type parentFix struct {
		track  store.ID
		parent uint64
	}
	var fixes []parentFix

	rest := payload
	for {
		if len(rest) == 0 {
			break
		}
		typ := rest[0]
		rest = rest[1:]
		if typ == recEnd {
			break
		}
		if len(rest) < 4 {
			return nil, fmt.Errorf("truncated record: %w", ErrCorruptData)
		}
		length := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if length > maxRecordLength || int(length) > len(rest) {
			return nil, fmt.Errorf("record length %d: %w", length, ErrCorruptData)
		}
		body := rest[:length]
		rest = rest[length:]

		switch typ {
		case recTrack:
			oldID, id, parent, err := decodeTrack(m, body)
			if err != nil {
				return nil, err
			}
			tracks[oldID] = id
			if parent != uint64(store.InvalidID) {
				fixes = append(fixes, parentFix{track: id, parent: parent})
			}
		case recClip:
			oldID, id, err := decodeClip(m, body, tracks)
			if err != nil {
				return nil, err
			}
			clips[oldID] = id
		case recMarker:
			if err := decodeMarker(m, body); err != nil {
				return nil, err
			}
		case recTransition:
			if err := decodeTransition(m, body, clips); err != nil {
				return nil, err
			}
		case recPlayhead:
			r := newFieldReader(body)
			at := r.i64()
			if r.err != nil {
				return nil, fmt.Errorf("playhead record: %w", ErrCorruptData)
			}
			m.SetPlayhead(timecode.TimePoint(at))
		default:
			// Unknown record type from a newer minor version; skip.
		}
	}

	for _, f := range fixes {
		parent, ok := tracks[f.parent]
		if !ok {
			return nil, fmt.Errorf("track parent %d: %w", f.parent, ErrCorruptData)
		}
		t, _ := m.Track(f.track)
		t.Parent = parent
		if err := m.SetTrack(f.track, t); err != nil {
			return nil, fmt.Errorf("track parent: %w", err)
		}
	}

	// Clips were placed unchecked; with every transition attached the
	// non-overlap invariant can now be enforced.
	for _, id := range clips {
		c, _ := m.Clip(id)
		if err := m.CheckPlacement(c.Track, id, c.Timeline); err != nil {
			return nil, fmt.Errorf("clip record: %w: %v", ErrCorruptData, err)
		}
	}

	return m, nil
}

// --- Record bodies ---

func encodeTrack(id store.ID, t timeline.Track) []byte {
	var b bytes.Buffer
	writeU64(&b, uint64(id))
	writeString(&b, t.Name)
	b.WriteByte(byte(t.Type))
	writeI32(&b, int32(t.Index))
	writeI32(&b, int32(t.Height))
	var flags byte
	if t.Locked {
		flags |= 0x01
	}
	if t.Muted {
		flags |= 0x02
	}
	if t.Soloed {
		flags |= 0x04
	}
	if t.ShowWaveform {
		flags |= 0x08
	}
	b.WriteByte(flags)
	writeString(&b, string(t.Color))
	writeU64(&b, uint64(t.Parent))
	return b.Bytes()
}

func decodeTrack(m *timeline.Model, body []byte) (oldID uint64, id store.ID, parent uint64, err error) {
	r := newFieldReader(body)
	oldID = r.u64()
	name := r.str()
	typ := timeline.TrackType(r.u8())
	index := int(r.i32())
	height := int(r.i32())
	flags := r.u8()
	color := r.str()
	parent = r.u64()
	if r.err != nil {
		return 0, store.InvalidID, 0, fmt.Errorf("track record: %w", ErrCorruptData)
	}

	id = m.CreateTrack(name, typ, index)
	t, _ := m.Track(id)
	t.Height = height
	t.Locked = flags&0x01 != 0
	t.Muted = flags&0x02 != 0
	t.Soloed = flags&0x04 != 0
	t.ShowWaveform = flags&0x08 != 0
	t.Color = timeline.Color(color)
	if err := m.SetTrack(id, t); err != nil {
		return 0, store.InvalidID, 0, fmt.Errorf("track record: %w", err)
	}
	return oldID, id, parent, nil
}

func encodeClip(id store.ID, c timeline.Clip) []byte {
	var b bytes.Buffer
	writeU64(&b, uint64(id))
	writeU64(&b, uint64(c.Track))
	writeString(&b, c.Name)
	b.Write(c.Media[:])
	writeRange(&b, c.Source)
	writeRange(&b, c.Timeline)
	writeF64(&b, c.Speed)
	var flags byte
	if c.Reversed {
		flags |= 0x01
	}
	if c.Muted {
		flags |= 0x02
	}
	if c.Locked {
		flags |= 0x04
	}
	b.WriteByte(flags)
	writeF64(&b, c.Volume)
	writeF64(&b, c.Opacity)
	for _, f := range []float64{
		c.Transform.Position.X, c.Transform.Position.Y,
		c.Transform.Scale.X, c.Transform.Scale.Y,
		c.Transform.Rotation,
		c.Transform.Anchor.X, c.Transform.Anchor.Y,
	} {
		writeF64(&b, f)
	}
	b.WriteByte(byte(c.Blend))

	writeU16(&b, uint16(len(c.Effects)))
	for _, e := range c.Effects {
		writeString(&b, e.Ref)
		writeParams(&b, e.Params)
	}

	writeU32(&b, uint32(len(c.Keyframes)))
	for _, kf := range c.Keyframes {
		writeI64(&b, int64(kf.Time))
		writeString(&b, kf.Param)
		writeValue(&b, kf.Value)
		b.WriteByte(byte(kf.Interp))
	}
	return b.Bytes()
}

func decodeClip(m *timeline.Model, body []byte, tracks map[uint64]store.ID) (uint64, store.ID, error) {
	r := newFieldReader(body)
	oldID := r.u64()
	oldTrack := r.u64()

	var c timeline.Clip
	c.Name = r.str()
	media := r.bytes(16)
	c.Source = r.rng()
	c.Timeline = r.rng()
	c.Speed = r.f64()
	flags := r.u8()
	c.Reversed = flags&0x01 != 0
	c.Muted = flags&0x02 != 0
	c.Locked = flags&0x04 != 0
	c.Volume = r.f64()
	c.Opacity = r.f64()
	c.Transform.Position.X = r.f64()
	c.Transform.Position.Y = r.f64()
	c.Transform.Scale.X = r.f64()
	c.Transform.Scale.Y = r.f64()
	c.Transform.Rotation = r.f64()
	c.Transform.Anchor.X = r.f64()
	c.Transform.Anchor.Y = r.f64()
	c.Blend = timeline.BlendMode(r.u8())

	nEffects := int(r.u16())
	for i := 0; i < nEffects && r.err == nil; i++ {
		e := timeline.Effect{Ref: r.str(), Params: r.params()}
		c.Effects = append(c.Effects, e)
	}

	nKeyframes := int(r.u32())
	for i := 0; i < nKeyframes && r.err == nil; i++ {
		kf := timeline.Keyframe{
			Time:  timecode.TimePoint(r.i64()),
			Param: r.str(),
			Value: r.value(),
		}
		kf.Interp = timeline.InterpKind(r.u8())
		c.Keyframes = append(c.Keyframes, kf)
	}

	if r.err != nil {
		return 0, store.InvalidID, fmt.Errorf("clip record: %w", ErrCorruptData)
	}
	c.Media, _ = uuid.FromBytes(media)

	track, ok := tracks[oldTrack]
	if !ok {
		return 0, store.InvalidID, fmt.Errorf("clip track %d: %w", oldTrack, ErrCorruptData)
	}
	c.Track = track

	// Placement is validated after the whole stream is decoded: an
	// overlap may be sanctioned by a transition record that follows.
	return oldID, m.PlaceClip(c), nil
}

func encodeMarker(id store.ID, mk timeline.Marker) []byte {
	var b bytes.Buffer
	writeU64(&b, uint64(id))
	writeString(&b, mk.Name)
	writeString(&b, string(mk.Color))
	writeRange(&b, mk.Range)
	writeU16(&b, uint16(len(mk.Metadata)))
	for k, v := range mk.Metadata {
		writeString(&b, k)
		writeString(&b, v)
	}
	writeU16(&b, uint16(len(mk.Tags)))
	for _, tag := range mk.Tags {
		writeString(&b, tag)
	}
	return b.Bytes()
}

func decodeMarker(m *timeline.Model, body []byte) error {
	r := newFieldReader(body)
	_ = r.u64() // marker IDs are not referenced by anything
	var mk timeline.Marker
	mk.Name = r.str()
	mk.Color = timeline.Color(r.str())
	mk.Range = r.rng()
	nMeta := int(r.u16())
	for i := 0; i < nMeta && r.err == nil; i++ {
		if mk.Metadata == nil {
			mk.Metadata = make(map[string]string, nMeta)
		}
		k := r.str()
		mk.Metadata[k] = r.str()
	}
	nTags := int(r.u16())
	for i := 0; i < nTags && r.err == nil; i++ {
		mk.Tags = append(mk.Tags, r.str())
	}
	if r.err != nil {
		return fmt.Errorf("marker record: %w", ErrCorruptData)
	}
	m.AddMarker(mk)
	return nil
}

func encodeTransition(id store.ID, tr timeline.Transition) []byte {
	var b bytes.Buffer
	writeU64(&b, uint64(id))
	writeString(&b, tr.Kind)
	writeRange(&b, tr.Range)
	writeU64(&b, uint64(tr.From))
	writeU64(&b, uint64(tr.To))
	writeParams(&b, tr.Params)
	return b.Bytes()
}

func decodeTransition(m *timeline.Model, body []byte, clips map[uint64]store.ID) error {
	r := newFieldReader(body)
	_ = r.u64()
	var tr timeline.Transition
	tr.Kind = r.str()
	tr.Range = r.rng()
	from := r.u64()
	to := r.u64()
	tr.Params = r.params()
	if r.err != nil {
		return fmt.Errorf("transition record: %w", ErrCorruptData)
	}

	var ok bool
	if tr.From, ok = clips[from]; !ok {
		return fmt.Errorf("transition clip %d: %w", from, ErrCorruptData)
	}
	if tr.To, ok = clips[to]; !ok {
		return fmt.Errorf("transition clip %d: %w", to, ErrCorruptData)
	}
	if _, err := m.AddTransition(tr); err != nil {
		return fmt.Errorf("transition record: %w: %v", ErrCorruptData, err)
	}
	return nil
}

// --- Low-level encoding ---

func writeRecord(w *bytes.Buffer, typ byte, body []byte) error {
	if len(body) > maxRecordLength {
		return fmt.Errorf("record body %d bytes: %w", len(body), ErrCorruptData)
	}
	w.WriteByte(typ)
	writeU32(w, uint32(len(body)))
	w.Write(body)
	return nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeU32(b *bytes.Buffer, v uint32) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeU64(b *bytes.Buffer, v uint64) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeI32(b *bytes.Buffer, v int32) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeI64(b *bytes.Buffer, v int64) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeF64(b *bytes.Buffer, v float64) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

func writeString(b *bytes.Buffer, s string) {
	writeU32(b, uint32(len(s)))
	b.WriteString(s)
}

func writeRange(b *bytes.Buffer, r timecode.TimeRange) {
	writeI64(b, int64(r.Start))
	writeI64(b, int64(r.End))
}

func writeValue(b *bytes.Buffer, v timeline.Value) {
	b.WriteByte(byte(v.Kind()))
	if s, ok := v.AsString(); ok {
		writeString(b, s)
		return
	}
	var vec [4]float64
	if f, ok := v.AsFloat(); ok {
		vec[0] = f
	} else if vs, ok := v.AsVec(); ok {
		copy(vec[:], vs)
	}
	for _, f := range vec {
		writeF64(b, f)
	}
}

func writeParams(b *bytes.Buffer, params map[string]timeline.Value) {
	writeU16(b, uint16(len(params)))
	for k, v := range params {
		writeString(b, k)
		writeValue(b, v)
	}
}

// fieldReader decodes a record body. The first error sticks; trailing
// bytes it never reads are fields from a newer minor version.
type fieldReader struct {
	rest []byte
	err  error
}

func newFieldReader(body []byte) *fieldReader {
	return &fieldReader{rest: body}
}

func (r *fieldReader) bytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.rest) < n {
		r.err = ErrCorruptData
		return make([]byte, n)
	}
	out := r.rest[:n]
	r.rest = r.rest[n:]
	return out
}

func (r *fieldReader) u8() byte {
	return r.bytes(1)[0]
}

func (r *fieldReader) u16() uint16 {
	return binary.LittleEndian.Uint16(r.bytes(2))
}

func (r *fieldReader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.bytes(4))
}

func (r *fieldReader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.bytes(8))
}

func (r *fieldReader) i32() int32 {
	return int32(r.u32())
}

func (r *fieldReader) i64() int64 {
	return int64(r.u64())
}

func (r *fieldReader) f64() float64 {
	return math.Float64frombits(r.u64())
}

func (r *fieldReader) str() string {
	n := r.u32()
	if n > maxStringLength {
		r.err = ErrCorruptData
		return ""
	}
	return string(r.bytes(int(n)))
}

func (r *fieldReader) rng() timecode.TimeRange {
	return timecode.TimeRange{
		Start: timecode.TimePoint(r.i64()),
		End:   timecode.TimePoint(r.i64()),
	}
}

func (r *fieldReader) value() timeline.Value {
	kind := timeline.ValueKind(r.u8())
	if kind == timeline.ValueString {
		return timeline.Str(r.str())
	}
	var vec [4]float64
	for i := range vec {
		vec[i] = r.f64()
	}
	switch kind {
	case timeline.ValueFloat:
		return timeline.Float(vec[0])
	case timeline.ValueVec2:
		return timeline.Vec2(vec[0], vec[1])
	case timeline.ValueVec3:
		return timeline.Vec3(vec[0], vec[1], vec[2])
	case timeline.ValueVec4:
		return timeline.Vec4(vec[0], vec[1], vec[2], vec[3])
	default:
		r.err = ErrCorruptData
		return timeline.Value{}
	}
}

func (r *fieldReader) params() map[string]timeline.Value {
	n := int(r.u16())
	if n == 0 || r.err != nil {
		return nil
	}
	params := make(map[string]timeline.Value, n)
	for i := 0; i < n && r.err == nil; i++ {
		k := r.str()
		params[k] = r.value()
	}
	return params
}
