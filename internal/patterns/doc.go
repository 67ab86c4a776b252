// Package patterns selects specs out of a candidate list.
//
// A SpecPattern is a pure function from candidates to the candidates it
// matches. Patterns never reorder unless documented (the time grain patterns
// group their output by kind). Patterns built from user input may also rank
// near misses so that error messages can suggest what the user meant.
//
// Patterns compose by sequencing: the group-by resolver applies a list of
// patterns one after another, each narrowing the candidates left by the
// previous one.
package patterns
