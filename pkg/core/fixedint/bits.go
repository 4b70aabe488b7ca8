package fixedint

func And(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v&b.v), a.w)
}

func Or(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v|b.v), a.w)
}

func Xor(a, b Int) Int {
	a, b = Promote(a, b)
	return mk(uint64(a.v^b.v), a.w)
}

// Inv flips every bit of a.
func Inv(a Int) Int {
	return mk(^uint64(a.v), a.Width())
}

// shiftCount masks n to the width as the JVM does for shl, shr and ushr.
func shiftCount(a Int, n Int) uint {
	return uint(n.v) & (uint(a.Width()) - 1)
}

// Shl shifts left, discarding bits shifted past the width.
func Shl(a Int, n Int) Int {
	return mk(uint64(a.v)<<shiftCount(a, n), a.Width())
}

// Shr is the arithmetic (sign-propagating) right shift.
func Shr(a Int, n Int) Int {
	return mk(uint64(a.v>>shiftCount(a, n)), a.Width())
}

// Ushr is the logical right shift over the width's bits.
func Ushr(a Int, n Int) Int {
	w := a.Width()
	u := uint64(a.v)
	if w < W64 {
		u &= 1<<uint(w) - 1
	}
	return mk(u>>shiftCount(a, n), w)
}
