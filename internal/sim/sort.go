package sim

import "github.com/san-kum/fluidsim/internal/physics"

// MergeSort sorts ps by ascending ID. It is a bottom-up merge sort, so it is
// stable and runs in O(n log n) regardless of the input order.
func MergeSort(ps []physics.Particle) {
	n := len(ps)
	if n < 2 {
		return
	}

	buf := scratch.Get(n)
	defer scratch.Put(buf)

	src, dst := ps, *buf
	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			merge(dst[lo:hi], src[lo:mid], src[mid:hi])
		}
		src, dst = dst, src
	}

	if &src[0] != &ps[0] {
		copy(ps, src)
	}
}

// merge writes the ordered union of a and b to out. Ties keep a first.
func merge(out, a, b []physics.Particle) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if b[j].ID < a[i].ID {
			out[k] = b[j]
			j++
		} else {
			out[k] = a[i]
			i++
		}
		k++
	}
	k += copy(out[k:], a[i:])
	copy(out[k:], b[j:])
}
