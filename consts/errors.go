package consts

import "errors"

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrMessageTooDeep   = errors.New("MIME structure nested too deeply")
	ErrTooManyParts     = errors.New("too many MIME parts")

	ErrCharsetUnknown = errors.New("unknown character set")
	ErrBadCharset     = errors.New("conversion between character sets failed")

	ErrVariableUnknown = errors.New("unknown variable")
	ErrCommandUnknown  = errors.New("unknown command")

	ErrS3DownloadFailed = errors.New("s3 download failed")
)
