// internal/morse/assemble.go
package morse

import (
	"github.com/ColonelBlimp/morselight/internal/container"
)

// AssembleStep advances letter assembly by one step. hold carries the
// symbols accumulated for the current letter, possibly prefixed by a
// single WordSpace marker left by an earlier step.
//
// A step emits at most one character:
//
//  1. a WordSpace at the head of hold is consumed and emitted as ' ';
//  2. otherwise symbols are drained into hold until a boundary symbol
//     (LetterSpace or WordSpace) or exhaustion; a WordSpace boundary
//     re-seeds hold with a WordSpace marker so the next step emits the
//     space;
//  3. a boundary with an empty hold emits nothing, collapsing repeated
//     letter gaps;
//  4. a boundary with a held letter validates the intra-letter
//     TinySpace structure, serializes the Dot/Dash subsequence and looks
//     it up in the table;
//  5. exhaustion without a boundary keeps hold for the next call.
//
// The boolean result reports whether a character was emitted.
func AssembleStep(symbols, hold *container.Queue[Morse], table *SymbolTable) (rune, bool, error) {
	if head, ok := hold.Peek(); ok && head == WordSpace {
		hold.Pop()
		return ' ', true, nil
	}

	boundary := false
	var next Morse
	for symbols.Len() > 0 {
		sym, ok := symbols.Pop()
		if !ok {
			return 0, false, ErrQueueBug
		}
		if sym == LetterSpace || sym == WordSpace {
			boundary = true
			next = sym
			break
		}
		if hold.Len() >= maxSequenceLen {
			return 0, false, ErrInputTooLarge
		}
		if err := hold.Push(sym); err != nil {
			return 0, false, ErrInputTooLarge
		}
	}
	if !boundary {
		return 0, false, nil
	}

	var c rune
	emitted := false
	if hold.Len() > 0 {
		letter, err := letterify(hold, table)
		if err != nil {
			return 0, false, err
		}
		c = letter
		emitted = true
	}
	hold.Clear()
	if next == WordSpace {
		if err := hold.Push(WordSpace); err != nil {
			return 0, false, ErrInputTooLarge
		}
	}
	return c, emitted, nil
}

// Assemble is the fixed-point closure of AssembleStep: it repeats the
// step while the symbol stream is non-empty and no character has been
// produced, returning the first emission or nothing once input is
// exhausted.
func Assemble(symbols, hold *container.Queue[Morse], table *SymbolTable) (rune, bool, error) {
	for {
		c, ok, err := AssembleStep(symbols, hold, table)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return c, true, nil
		}
		if symbols.Len() == 0 {
			return 0, false, nil
		}
	}
}

// letterify validates and decodes the held symbols of one letter. Every
// pair of consecutive Dot/Dash elements must be separated by exactly one
// TinySpace; a trailing TinySpace after the last element is accepted.
func letterify(hold *container.Queue[Morse], table *SymbolTable) (rune, error) {
	var elements [maxSequenceLen]Morse
	n := 0
	expectTiny := false
	for hold.Len() > 0 {
		sym, ok := hold.Pop()
		if !ok {
			return 0, ErrQueueBug
		}
		switch sym {
		case Dot, Dash:
			if expectTiny {
				return 0, ErrInvalidLetterTinySpacing
			}
			if n >= maxSequenceLen {
				return 0, ErrInputTooLarge
			}
			elements[n] = sym
			n++
			expectTiny = true
		case TinySpace:
			if !expectTiny {
				return 0, ErrInvalidLetterTinySpacing
			}
			expectTiny = false
		default:
			return 0, &CrossesLetterBoundError{Sym: sym}
		}
	}
	length, bits, err := SerializeMorse(elements[:n])
	if err != nil {
		return 0, err
	}
	return table.Lookup(length, bits)
}
