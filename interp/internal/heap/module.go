package heap

// leb128u appends v as unsigned LEB128.
func leb128u(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// memoryModule returns a module that declares one memory of initial pages
// and exports it as "memory". The maximum is left open; the runtime config
// caps growth.
func memoryModule(initial uint32) []byte {
	mod := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}

	limits := leb128u([]byte{0x01, 0x00}, initial) // 1 memory, no max
	mod = append(mod, 0x05)
	mod = leb128u(mod, uint32(len(limits)))
	mod = append(mod, limits...)

	export := []byte{0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00}
	mod = append(mod, 0x07)
	mod = leb128u(mod, uint32(len(export)))
	return append(mod, export...)
}
