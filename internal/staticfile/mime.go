package staticfile

var mimeByExt = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"txt":  "text/plain",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"pdf":  "application/pdf",
	"xml":  "application/xml",
	"zip":  "application/zip",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"woff": "font/woff",
	"woff2": "font/woff2",
}

// contentType returns the MIME type for an extension (without the leading
// dot), defaulting to application/octet-stream.
func contentType(ext string) string {
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
