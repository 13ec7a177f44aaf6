// internal/morse/symboltable.go
package morse

import "errors"

// maxSequenceLen is the longest Dot/Dash sequence the table can key.
const maxSequenceLen = 8

var (
	// ErrTableFull indicates the backing table could not hold an entry;
	// only reachable through an implementation bug in the letter list
	ErrTableFull = errors.New("symbol table cannot hold entry")
)

// morseLetters maps each of the 26 Latin letters to its element
// sequence, '0' for Dot and '1' for Dash, first element first.
var morseLetters = [26]struct {
	seq    string
	letter rune
}{
	{"01", 'a'},
	{"1000", 'b'},
	{"1010", 'c'},
	{"100", 'd'},
	{"0", 'e'},
	{"0010", 'f'},
	{"110", 'g'},
	{"0000", 'h'},
	{"00", 'i'},
	{"0111", 'j'},
	{"101", 'k'},
	{"0100", 'l'},
	{"11", 'm'},
	{"10", 'n'},
	{"111", 'o'},
	{"0110", 'p'},
	{"1101", 'q'},
	{"010", 'r'},
	{"000", 's'},
	{"1", 't'},
	{"001", 'u'},
	{"0001", 'v'},
	{"011", 'w'},
	{"1001", 'x'},
	{"1011", 'y'},
	{"1100", 'z'},
}

// SymbolTable maps a binary-coded Morse sequence to its letter. The key
// is (len, bits) where bit i of bits is 1 iff the i-th element is a
// Dash. Backing storage is a flat array, one row per sequence length, so
// lookup is two index operations and construction cannot allocate after
// return.
type SymbolTable struct {
	letters [maxSequenceLen * 256]rune
}

// NewSymbolTable builds the constant table for the 26 Latin letters.
// Construction fails only if the backing array cannot hold an entry,
// which indicates a bug in the letter list.
func NewSymbolTable() (*SymbolTable, error) {
	t := &SymbolTable{}
	for _, entry := range morseLetters {
		n := len(entry.seq)
		if n == 0 || n > maxSequenceLen {
			return nil, ErrTableFull
		}
		var bits uint8
		for i := 0; i < n; i++ {
			if entry.seq[i] == '1' {
				bits |= 1 << i
			}
		}
		idx := tableIndex(uint8(n), bits)
		if t.letters[idx] != 0 {
			return nil, ErrTableFull
		}
		t.letters[idx] = entry.letter
	}
	return t, nil
}

// Lookup returns the letter for a serialized sequence.
// Surfaces an UnknownCharError when no letter is keyed by (length, bits).
func (t *SymbolTable) Lookup(length, bits uint8) (rune, error) {
	if length == 0 || length > maxSequenceLen {
		return 0, &UnknownCharError{Len: length, Bits: bits}
	}
	c := t.letters[tableIndex(length, bits)]
	if c == 0 {
		return 0, &UnknownCharError{Len: length, Bits: bits}
	}
	return c, nil
}

func tableIndex(length, bits uint8) int {
	return (int(length)-1)*256 + int(bits)
}

// SerializeMorse encodes a Dot/Dash sequence as a (length, bits) table
// key: bit i is set iff element i is a Dash. An empty sequence surfaces
// ErrEmptyInput, one longer than eight elements ErrInputTooLarge, and a
// gap symbol inside the sequence a CrossesLetterBoundError.
func SerializeMorse(seq []Morse) (uint8, uint8, error) {
	if len(seq) == 0 {
		return 0, 0, ErrEmptyInput
	}
	if len(seq) > maxSequenceLen {
		return 0, 0, ErrInputTooLarge
	}
	var bits uint8
	for i, m := range seq {
		switch m {
		case Dot:
		case Dash:
			bits |= 1 << i
		default:
			return 0, 0, &CrossesLetterBoundError{Sym: m}
		}
	}
	return uint8(len(seq)), bits, nil
}

// MorseSequence returns the element sequence for a letter, or false when
// the rune has no Morse encoding in the table. Inverse of Lookup; used
// by hosts that generate reference signals.
func MorseSequence(letter rune) ([]Morse, bool) {
	for _, entry := range morseLetters {
		if entry.letter != letter {
			continue
		}
		seq := make([]Morse, 0, len(entry.seq))
		for i := 0; i < len(entry.seq); i++ {
			if entry.seq[i] == '1' {
				seq = append(seq, Dash)
			} else {
				seq = append(seq, Dot)
			}
		}
		return seq, true
	}
	return nil, false
}
