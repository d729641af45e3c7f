package pikala

import "hash/maphash"

// maphashString hashes s under seed. Adapted from the teacher's
// xmaphash_118.go shim (which back-filled maphash.String for pre-1.19
// toolchains); this module's go.mod floor is already past that, so the
// standard library helper is used directly, unconditionally.
func maphashString(seed maphash.Seed, s string) uint64 {
	return maphash.String(seed, s)
}
