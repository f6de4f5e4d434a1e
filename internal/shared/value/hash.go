package value

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a structural hash consistent with Equal
func (v Value) Hash() uint64 {
	d := xxhash.New()
	v.writeHash(d)
	return d.Sum64()
}

func (v Value) writeHash(d *xxhash.Digest) {
	var buf [9]byte
	buf[0] = byte(v.kind)
	switch v.kind {
	case KindString:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.s)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(v.s)
		return
	case KindInt:
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.i))
	case KindDouble:
		f := v.f
		if f == 0 {
			f = 0 // -0 and +0 compare equal
		}
		if math.IsNaN(f) {
			f = math.NaN()
		}
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
	case KindBool:
		if v.b {
			buf[1] = 1
		}
	case KindArray:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.arr)))
		_, _ = d.Write(buf[:])
		for _, e := range v.arr {
			e.writeHash(d)
		}
		return
	case KindMap:
		binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.m)))
		_, _ = d.Write(buf[:])
		for _, k := range v.Keys() {
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(k)))
			_, _ = d.Write(buf[1:])
			_, _ = d.WriteString(k)
			v.m[k].writeHash(d)
		}
		return
	}
	_, _ = d.Write(buf[:])
}
