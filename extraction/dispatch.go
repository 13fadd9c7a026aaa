package extraction

import (
	"mime"
	"path/filepath"
	"strings"
)

// Recognised MIME types.
const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDoc  = "application/msword"
	mimePDF  = "application/pdf"

	mimeGeneric = "application/octet-stream"
)

var extensionFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDocx,
	".doc":  FormatDoc,
	".png":  FormatImage,
	".jpg":  FormatImage,
	".jpeg": FormatImage,
	".gif":  FormatImage,
	".webp": FormatImage,
	".bmp":  FormatImage,
	".tif":  FormatImage,
	".tiff": FormatImage,
}

// DetectFormat picks the extraction path from the declared MIME type. The
// file extension is consulted only when no MIME type was declared or it is
// the generic application/octet-stream; any other unrecognised MIME type is
// FormatUnknown.
func DetectFormat(mimeType, filename string) Format {
	mt := normalizeMIME(mimeType)
	if mt != "" && mt != mimeGeneric {
		return formatFromMIME(mt)
	}
	if f, ok := extensionFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return FormatUnknown
}

func normalizeMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	return mt
}

func formatFromMIME(mt string) Format {
	switch {
	case mt == mimePDF:
		return FormatPDF
	case mt == mimeDocx:
		return FormatDocx
	case mt == mimeDoc:
		return FormatDoc
	case strings.HasPrefix(mt, "image/"):
		return FormatImage
	default:
		return FormatUnknown
	}
}
