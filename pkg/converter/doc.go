// Package converter turns ChordPro markup into rendered artifacts by driving
// the external chordpro executable.
//
// The package owns the three security-sensitive pieces of the conversion
// path: translating validated request options into an ordered argument list,
// managing the temporary input/output files around the subprocess call, and
// sanitizing renderer diagnostics before they reach a caller. It does not
// parse or understand the markup itself; the renderer is a black box reached
// only through its command-line contract.
package converter
