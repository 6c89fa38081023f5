package consts

const (
	// MaxMIMEDepth is how deep multipart/message nesting may recurse before
	// the parser gives up on a body part.
	MaxMIMEDepth = 50

	// MaxMIMEParts caps the total number of body parts a single message may
	// declare across all nesting levels.
	MaxMIMEParts = 5000

	// ContentTooBig is the largest Content-Length header value the parser
	// will honor. Larger values are clamped to the remaining input.
	ContentTooBig = 1 << 30

	// HeaderChunk is the read granularity used when unfolding header lines.
	HeaderChunk = 1024

	// MaxEnrichedTag is the longest tag name the text/enriched renderer will
	// buffer before declaring the tag bogus.
	MaxEnrichedTag = 1024
)

const (
	// EncWordMax is the maximum total length of a single RFC 2047 encoded
	// word, including the charset, encoding and delimiters.
	EncWordMax = 75

	// EncWordMin is the smallest useful encoded word: "=?a?q?x?=" with a
	// one-byte charset, one-byte payload.
	EncWordMin = 9

	// HeaderWrapCol is the column at which encoded header lines are folded.
	HeaderWrapCol = 76
)

const (
	// BufferStartSize is the initial capacity of a growable text buffer.
	BufferStartSize = 256

	// PoolBufferCap is the largest buffer the pool will retain for reuse.
	// Bigger buffers are released to the garbage collector on return.
	PoolBufferCap = 1 << 20
)

const (
	// MaxSourceErrs aborts an rc file after this many errors.
	MaxSourceErrs = 128
)
