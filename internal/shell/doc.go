// Package shell knows where each login shell keeps its startup file and how to
// maintain the keyenv managed block inside it.
//
// The managed block is a region bounded by the BlockStart and BlockEnd
// sentinel lines holding one export statement per variable. Everything outside
// the block belongs to the user and is preserved.
package shell
