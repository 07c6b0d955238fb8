package lens

import "errors"

// Decoding errors. Each is wrapped with the offending pool index or node path, use errors.Is to classify.
var (
	// ErrMalformedReference indicates a pool reference outside the string or integer pool.
	ErrMalformedReference = errors.New("malformed pool reference")

	// ErrDecodeFailure indicates a string pool entry could not be text-decoded, decompressed, or is not UTF-8.
	ErrDecodeFailure = errors.New("string decode failure")

	// ErrShapeMismatch indicates a structural node is missing expected positional fields or has the wrong arity.
	ErrShapeMismatch = errors.New("encoded shape mismatch")
)
