package morse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSymbolTable(t *testing.T) {
	table, err := NewSymbolTable()
	require.NoError(t, err)
	require.NotNil(t, table)
}

func TestSymbolTable_Lookup(t *testing.T) {
	table, err := NewSymbolTable()
	require.NoError(t, err)

	tests := []struct {
		name   string
		length uint8
		bits   uint8
		want   rune
	}{
		{"e is a single dot", 1, 0b0, 'e'},
		{"t is a single dash", 1, 0b1, 't'},
		{"a is dot dash", 2, 0b10, 'a'},
		{"b is dash dot dot dot", 4, 0b0001, 'b'},
		{"o is three dashes", 3, 0b111, 'o'},
		{"s is three dots", 3, 0b000, 's'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Lookup(tt.length, tt.bits)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSymbolTable_LookupUnknown(t *testing.T) {
	table, err := NewSymbolTable()
	require.NoError(t, err)

	tests := []struct {
		name   string
		length uint8
		bits   uint8
	}{
		{"digit five pattern", 5, 0b00000},
		{"unassigned four bit pattern", 4, 0b1111},
		{"zero length", 0, 0},
		{"over long", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Lookup(tt.length, tt.bits)
			var unknown *UnknownCharError
			require.ErrorAs(t, err, &unknown)
			require.Equal(t, tt.length, unknown.Len)
			require.Equal(t, tt.bits, unknown.Bits)
		})
	}
}

// Every letter's element sequence serializes back to that letter.
func TestSymbolTable_RoundTrip(t *testing.T) {
	table, err := NewSymbolTable()
	require.NoError(t, err)

	for letter := 'a'; letter <= 'z'; letter++ {
		seq, ok := MorseSequence(letter)
		require.Truef(t, ok, "no sequence for %c", letter)

		length, bits, err := SerializeMorse(seq)
		require.NoError(t, err)
		got, err := table.Lookup(length, bits)
		require.NoError(t, err)
		require.Equalf(t, letter, got, "round trip for %c", letter)
	}
}

func TestSerializeMorse(t *testing.T) {
	length, bits, err := SerializeMorse([]Morse{Dash, Dot, Dot, Dot})
	require.NoError(t, err)
	require.Equal(t, uint8(4), length)
	require.Equal(t, uint8(0b0001), bits)
}

func TestSerializeMorse_Empty(t *testing.T) {
	_, _, err := SerializeMorse(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestSerializeMorse_TooLong(t *testing.T) {
	seq := make([]Morse, 9)
	_, _, err := SerializeMorse(seq)
	require.ErrorIs(t, err, ErrInputTooLarge)
}

func TestSerializeMorse_GapSymbol(t *testing.T) {
	_, _, err := SerializeMorse([]Morse{Dot, LetterSpace})
	var crosses *CrossesLetterBoundError
	require.True(t, errors.As(err, &crosses))
	require.Equal(t, LetterSpace, crosses.Sym)
}

func TestMorseSequence_Unknown(t *testing.T) {
	_, ok := MorseSequence('3')
	require.False(t, ok)
	_, ok = MorseSequence('A')
	require.False(t, ok)
}
