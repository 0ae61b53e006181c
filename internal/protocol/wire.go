package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mmynk/groupledger/internal/models"
)

// encoder appends protobuf wire-format fields.
type encoder struct {
	b []byte
}

func (e *encoder) uint(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) int(num protowire.Number, v int64) {
	e.uint(num, protowire.EncodeZigZag(v))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	e.uint(num, protowire.EncodeBool(v))
}

func (e *encoder) coins(num protowire.Number, c models.Coins) {
	e.uint(num, uint64(c))
}

func (e *encoder) str(num protowire.Number, s string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, s)
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) addr(num protowire.Number, a models.Address) {
	e.bytes(num, a[:])
}

// optional fields are written only when set, so presence survives the round trip.

func (e *encoder) optBool(num protowire.Number, v *bool) {
	if v != nil {
		e.bool(num, *v)
	}
}

func (e *encoder) optStr(num protowire.Number, s *string) {
	if s != nil {
		e.str(num, *s)
	}
}

type field struct {
	typ protowire.Type
	v   uint64
	b   []byte
}

// decoder reads fields parsed from one payload. The first error sticks and
// every later read returns a zero value.
type decoder struct {
	fields map[protowire.Number][]field
	err    error
}

func newDecoder(b []byte) *decoder {
	d := &decoder{fields: make(map[protowire.Number][]field)}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			d.err = protowire.ParseError(n)
			return d
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				d.err = protowire.ParseError(n)
				return d
			}
			d.fields[num] = append(d.fields[num], field{typ: typ, v: v})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				d.err = protowire.ParseError(n)
				return d
			}
			d.fields[num] = append(d.fields[num], field{typ: typ, b: v})
			b = b[n:]
		default:
			// unknown wire types are skipped for forward compatibility
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				d.err = protowire.ParseError(n)
				return d
			}
			b = b[n:]
		}
	}
	return d
}

func (d *decoder) last(num protowire.Number, typ protowire.Type) (field, bool) {
	if d.err != nil {
		return field{}, false
	}
	fs := d.fields[num]
	if len(fs) == 0 {
		return field{}, false
	}
	f := fs[len(fs)-1]
	if f.typ != typ {
		d.err = fmt.Errorf("field %d: wire type %d, want %d", num, f.typ, typ)
		return field{}, false
	}
	return f, true
}

func (d *decoder) has(num protowire.Number) bool {
	return len(d.fields[num]) > 0
}

func (d *decoder) uint(num protowire.Number) uint64 {
	f, _ := d.last(num, protowire.VarintType)
	return f.v
}

func (d *decoder) uint32(num protowire.Number) uint32 {
	v := d.uint(num)
	if v > 1<<32-1 && d.err == nil {
		d.err = fmt.Errorf("field %d: value %d overflows uint32", num, v)
		return 0
	}
	return uint32(v)
}

func (d *decoder) int(num protowire.Number) int64 {
	return protowire.DecodeZigZag(d.uint(num))
}

func (d *decoder) bool(num protowire.Number) bool {
	return protowire.DecodeBool(d.uint(num))
}

func (d *decoder) coins(num protowire.Number) models.Coins {
	return models.Coins(d.uint(num))
}

func (d *decoder) str(num protowire.Number) string {
	f, _ := d.last(num, protowire.BytesType)
	return string(f.b)
}

func (d *decoder) bytes(num protowire.Number) []byte {
	f, _ := d.last(num, protowire.BytesType)
	return append([]byte(nil), f.b...)
}

func (d *decoder) addr(num protowire.Number) models.Address {
	f, ok := d.last(num, protowire.BytesType)
	if !ok {
		return models.ZeroAddress
	}
	a, err := models.AddressFromBytes(f.b)
	if err != nil {
		d.err = fmt.Errorf("field %d: %w", num, err)
	}
	return a
}

func (d *decoder) optBool(num protowire.Number) *bool {
	if !d.has(num) {
		return nil
	}
	v := d.bool(num)
	return &v
}

func (d *decoder) optStr(num protowire.Number) *string {
	if !d.has(num) {
		return nil
	}
	v := d.str(num)
	return &v
}

func (d *decoder) addrs(num protowire.Number) []models.Address {
	if d.err != nil {
		return nil
	}
	var out []models.Address
	for _, f := range d.fields[num] {
		if f.typ != protowire.BytesType {
			d.err = fmt.Errorf("field %d: wire type %d, want bytes", num, f.typ)
			return nil
		}
		a, err := models.AddressFromBytes(f.b)
		if err != nil {
			d.err = fmt.Errorf("field %d: %w", num, err)
			return nil
		}
		out = append(out, a)
	}
	return out
}

func (d *decoder) coinList(num protowire.Number) []models.Coins {
	if d.err != nil {
		return nil
	}
	var out []models.Coins
	for _, f := range d.fields[num] {
		if f.typ != protowire.VarintType {
			d.err = fmt.Errorf("field %d: wire type %d, want varint", num, f.typ)
			return nil
		}
		out = append(out, models.Coins(f.v))
	}
	return out
}

func (d *decoder) uint8(num protowire.Number) uint8 {
	v := d.uint(num)
	if v > 255 && d.err == nil {
		d.err = fmt.Errorf("field %d: value %d overflows uint8", num, v)
		return 0
	}
	return uint8(v)
}
