package w3g

import "fmt"

// ParseError is the base error type for parsing errors.
type ParseError struct {
	Message string
	Offset  *int
}

func (e *ParseError) Error() string {
	if e.Offset != nil {
		return fmt.Sprintf("%s at offset 0x%X", e.Message, *e.Offset)
	}
	return e.Message
}

// InvalidHeaderError indicates invalid or unrecognized header format.
type InvalidHeaderError struct {
	ParseError
}

// BlockSizeMismatchError indicates a block decompressed to a length other
// than the one declared in its block header. This usually means the file
// was truncated or corrupted in transit.
type BlockSizeMismatchError struct {
	ParseError
	Block    int
	Declared int
	Actual   int
}

// DecompressionError indicates failed to decompress data block.
type DecompressionError struct {
	ParseError
}

// UnknownBlockError indicates an unrecognized top-level block tag. The
// top-level framing must always be understood, so this is fatal.
type UnknownBlockError struct {
	ParseError
	BlockID uint8
}

// MalformedRecordError indicates a startup record that cannot be decoded,
// such as a slot table whose computed record width is out of bounds.
type MalformedRecordError struct {
	ParseError
}

// TruncatedDataError indicates data was truncated unexpectedly.
type TruncatedDataError struct {
	ParseError
}

// PlayerNotFoundError indicates a player id absent from both the player
// list and the slot table. Raised only by derived queries.
type PlayerNotFoundError struct {
	PlayerID uint8
}

func (e *PlayerNotFoundError) Error() string {
	return fmt.Sprintf("no player or slot record for player ID %d", e.PlayerID)
}

// WinnerIndeterminateError indicates the winner heuristic exhausted its
// search window without a determination.
type WinnerIndeterminateError struct{}

func (e *WinnerIndeterminateError) Error() string {
	return "winner could not be determined from the event stream"
}

// Helper functions for creating errors

func newInvalidHeaderError(msg string) *InvalidHeaderError {
	return &InvalidHeaderError{ParseError{Message: msg}}
}

func newBlockSizeMismatchError(block, declared, actual int) *BlockSizeMismatchError {
	return &BlockSizeMismatchError{
		ParseError: ParseError{
			Message: fmt.Sprintf("block %d decompressed to %d bytes, declared %d",
				block, actual, declared),
		},
		Block:    block,
		Declared: declared,
		Actual:   actual,
	}
}

func newDecompressionError(msg string, offset int) *DecompressionError {
	return &DecompressionError{ParseError{Message: msg, Offset: &offset}}
}

func newUnknownBlockError(blockID uint8, offset int) *UnknownBlockError {
	return &UnknownBlockError{
		ParseError: ParseError{
			Message: fmt.Sprintf("unknown block type 0x%02X", blockID),
			Offset:  &offset,
		},
		BlockID: blockID,
	}
}

func newMalformedRecordError(msg string, offset int) *MalformedRecordError {
	return &MalformedRecordError{ParseError{Message: msg, Offset: &offset}}
}

func newTruncatedDataError(msg string, offset int) *TruncatedDataError {
	return &TruncatedDataError{ParseError{Message: msg, Offset: &offset}}
}
