// Package email parses RFC 5322 messages: headers into an Envelope, the
// MIME structure into a Body tree annotated with offsets and lengths, plus
// the codecs those headers need (RFC 2047 encoded words are in their own
// package; RFC 2231 parameter continuations live here beside Parameter).
package email

import "strings"

// ContentType classifies the major MIME type of a body part.
type ContentType int

const (
	TypeOther ContentType = iota
	TypeAudio
	TypeApplication
	TypeImage
	TypeMessage
	TypeModel
	TypeMultipart
	TypeText
	TypeVideo
	TypeAny
)

// BodyTypes are the string forms of the ContentType constants.
var BodyTypes = []string{
	"x-unknown", "audio", "application", "image", "message",
	"model", "multipart", "text", "video", "*",
}

func (t ContentType) String() string {
	if int(t) < len(BodyTypes) {
		return BodyTypes[t]
	}
	return BodyTypes[TypeOther]
}

// ContentEncoding is a Content-Transfer-Encoding.
type ContentEncoding int

const (
	EncOther ContentEncoding = iota
	Enc7Bit
	Enc8Bit
	EncQuotedPrintable
	EncBase64
	EncBinary
	EncUUEncoded
)

// BodyEncodings are the string forms of the ContentEncoding constants.
var BodyEncodings = []string{
	"x-unknown", "7bit", "8bit", "quoted-printable", "base64", "binary", "x-uuencoded",
}

func (e ContentEncoding) String() string {
	if int(e) < len(BodyEncodings) {
		return BodyEncodings[e]
	}
	return BodyEncodings[EncOther]
}

// ContentDisposition is a Content-Disposition kind.
type ContentDisposition int

const (
	DispInline ContentDisposition = iota
	DispAttach
	DispFormData
	DispNone
)

// CheckMimeType maps a major type token onto a ContentType. Matching is a
// case-insensitive prefix test, which tolerates trailing junk.
func CheckMimeType(s string) ContentType {
	switch {
	case istrPrefix(s, "audio"):
		return TypeAudio
	case istrPrefix(s, "application"):
		return TypeApplication
	case istrPrefix(s, "image"):
		return TypeImage
	case istrPrefix(s, "message"):
		return TypeMessage
	case istrPrefix(s, "model"):
		return TypeModel
	case istrPrefix(s, "multipart"):
		return TypeMultipart
	case istrPrefix(s, "text"):
		return TypeText
	case istrPrefix(s, "video"):
		return TypeVideo
	case istrPrefix(s, "*") || istrPrefix(s, ".*"):
		return TypeAny
	}
	return TypeOther
}

// CheckEncoding maps a Content-Transfer-Encoding token onto a
// ContentEncoding, again by case-insensitive prefix.
func CheckEncoding(s string) ContentEncoding {
	switch {
	case istrPrefix(s, "7bit"):
		return Enc7Bit
	case istrPrefix(s, "8bit"):
		return Enc8Bit
	case istrPrefix(s, "binary"):
		return EncBinary
	case istrPrefix(s, "quoted-printable"):
		return EncQuotedPrintable
	case istrPrefix(s, "base64"):
		return EncBase64
	case istrPrefix(s, "x-uuencode"), istrPrefix(s, "uuencode"):
		return EncUUEncoded
	}
	return EncOther
}

func istrPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IsMessageType reports whether the type/subtype pair is treated as an
// embedded message: message/rfc822, message/global and message/news.
func IsMessageType(t ContentType, subtype string) bool {
	if t != TypeMessage {
		return false
	}
	return strings.EqualFold(subtype, "rfc822") ||
		strings.EqualFold(subtype, "global") ||
		strings.EqualFold(subtype, "news")
}
