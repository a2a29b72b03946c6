package wf

import (
	"hash/fnv"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// bsonDeepEqual compares two rendered BSON values for structural equality.
// bson.D is compared order-sensitively (field order is significant in a
// pipeline stage); bson.A and bson.M are compared by recursing into their
// elements.
func bsonDeepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case bson.D:
		bv, ok := b.(bson.D)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Key != bv[i].Key || !bsonDeepEqual(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	case bson.A:
		bv, ok := b.(bson.A)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !bsonDeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case bson.M:
		bv, ok := b.(bson.M)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, ok := bv[k]
			if !ok || !bsonDeepEqual(v, bval) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// structHash computes an order-sensitive FNV-1a hash of a rendered BSON
// value. cache.go uses it to key Compile results on an op's rendered debug
// tree; two values hash the same when they render identically.
func structHash(v interface{}) uint64 {
	h := fnv.New64a()
	writeHash(h, v)
	return h.Sum64()
}

func writeHash(h interface{ Write([]byte) (int, error) }, v interface{}) {
	switch vv := v.(type) {
	case bson.D:
		h.Write([]byte{'D'})
		for _, e := range vv {
			h.Write([]byte(e.Key))
			h.Write([]byte{0})
			writeHash(h, e.Value)
			h.Write([]byte{1})
		}
	case bson.A:
		h.Write([]byte{'A'})
		for _, e := range vv {
			writeHash(h, e)
			h.Write([]byte{1})
		}
	case bson.M:
		h.Write([]byte{'M'})
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{0})
			writeHash(h, vv[k])
			h.Write([]byte{1})
		}
	case string:
		h.Write([]byte{'s'})
		h.Write([]byte(vv))
	case nil:
		h.Write([]byte{'n'})
	default:
		h.Write([]byte{'x'})
		h.Write([]byte(sprintHash(vv)))
	}
}

// sprintHash renders a scalar for hashing without pulling in fmt's full
// reflection machinery for the common cases.
func sprintHash(v interface{}) string {
	switch vv := v.(type) {
	case bool:
		if vv {
			return "t"
		}
		return "f"
	case int:
		return itoaHash(int64(vv))
	case int32:
		return itoaHash(int64(vv))
	case int64:
		return itoaHash(vv)
	case float64:
		return itoaHash(int64(vv*1e9)) // sufficient discrimination for cache keys
	default:
		return "?"
	}
}

func itoaHash(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
