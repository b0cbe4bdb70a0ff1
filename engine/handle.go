package engine

import "strconv"

// Handle identifies a body or ghost inside one engine. The low 32 bits hold
// the slot id and the high 32 bits its generation, so a destroyed handle
// never aliases a newer object in the same slot.
type Handle uint64

type slotID uint32
type generation uint32

const slotIDBits = 32

func makeHandle(id slotID, gen generation) Handle {
	return Handle(uint64(gen)<<slotIDBits | uint64(id))
}

func (h Handle) id() slotID {
	return slotID(uint32(h))
}

func (h Handle) generation() generation {
	return generation(uint32(uint64(h) >> slotIDBits))
}

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// Valid reports whether h could refer to an object. The zero Handle never
// does.
func (h Handle) Valid() bool {
	return h.id() > 0
}
