package document

// Merge returns overlay layered on top of base. Neither input is modified.
//
//   - maps on both sides merge key by key;
//   - a Reset overlay clears the field: lists and absent keys become an empty
//     list, maps an empty map, scalars the zero value of their type;
//   - a null overlay keeps the base value when one exists;
//   - anything else from the overlay replaces the base value.
//
// The result never contains Reset.
func Merge(base, overlay *Map) *Map {
	return MergeAll(base, overlay)
}

// MergeAll folds layers from left to right with the rules of Merge. Nil
// layers are skipped.
func MergeAll(layers ...*Map) *Map {
	out := NewMap()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		mergeInto(out, layer)
	}
	return out
}

// mergeInto applies src onto dst in place. dst must be exclusively owned.
func mergeInto(dst, src *Map) {
	for _, key := range src.keys {
		base, present := dst.values[key]
		dst.Set(key, mergeValue(base, present, src.values[key]))
	}
}

func mergeValue(base Value, present bool, overlay Value) Value {
	switch ov := overlay.(type) {
	case Reset:
		if !present {
			return List{}
		}
		return zeroOf(base)
	case Scalar:
		if ov.IsNull() && present {
			return base
		}
		return ov
	case *Map:
		if bm, ok := base.(*Map); ok && present {
			mergeInto(bm, ov)
			return bm
		}
		fresh := NewMap()
		mergeInto(fresh, ov)
		return fresh
	case List:
		return normalizeList(ov)
	default:
		return overlay.clone()
	}
}

func zeroOf(v Value) Value {
	switch t := v.(type) {
	case *Map:
		return NewMap()
	case Scalar:
		return t.zero()
	default:
		return List{}
	}
}

// normalizeList deep copies l, resolving any Reset held by maps inside it.
func normalizeList(l List) List {
	out := make(List, len(l))
	for i, item := range l {
		switch t := item.(type) {
		case *Map:
			fresh := NewMap()
			mergeInto(fresh, t)
			out[i] = fresh
		case List:
			out[i] = normalizeList(t)
		case Reset:
			out[i] = List{}
		default:
			out[i] = item.clone()
		}
	}
	return out
}
