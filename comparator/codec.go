package comparator

// Codec converts a key type to and from its fixed-width byte encoding, so
// the B+-tree's node codec can decode keys out of a page without knowing
// their concrete width at compile time.
type Codec[K any] interface {
	Size() int
	Encode(k K) []byte
	Decode(b []byte) K
}

// Key4Codec, Key8Codec, Key16Codec, Key32Codec and Key64Codec are the
// fixed-width instantiations spec.md §6 requires to work.
type (
	Key4Codec  struct{}
	Key8Codec  struct{}
	Key16Codec struct{}
	Key32Codec struct{}
	Key64Codec struct{}
)

func (Key4Codec) Size() int            { return 4 }
func (Key4Codec) Encode(k Key4) []byte { return k.Bytes() }
func (Key4Codec) Decode(b []byte) Key4 { var k Key4; copy(k[:], b); return k }

func (Key8Codec) Size() int            { return 8 }
func (Key8Codec) Encode(k Key8) []byte { return k.Bytes() }
func (Key8Codec) Decode(b []byte) Key8 { var k Key8; copy(k[:], b); return k }

func (Key16Codec) Size() int             { return 16 }
func (Key16Codec) Encode(k Key16) []byte { return k.Bytes() }
func (Key16Codec) Decode(b []byte) Key16 { var k Key16; copy(k[:], b); return k }

func (Key32Codec) Size() int             { return 32 }
func (Key32Codec) Encode(k Key32) []byte { return k.Bytes() }
func (Key32Codec) Decode(b []byte) Key32 { var k Key32; copy(k[:], b); return k }

func (Key64Codec) Size() int             { return 64 }
func (Key64Codec) Encode(k Key64) []byte { return k.Bytes() }
func (Key64Codec) Decode(b []byte) Key64 { var k Key64; copy(k[:], b); return k }
