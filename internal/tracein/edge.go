// Package tracein consumes per-instruction ETM decoder events and
// linearizes them into a stream of function-to-function transitions.
package tracein

// Edge is a single observed transition between functions, annotated
// as a call-in (IsEntry true, the previous instruction was a taken
// branch) or a call-out (IsEntry false, a return inferred from a
// function change with no preceding taken branch).
type Edge struct {
	Timestamp uint64
	SrcAddr   uint32
	DstAddr   uint32
	SrcFile   string
	SrcFn     string
	DstFile   string
	DstFn     string
	IsEntry   bool
}
