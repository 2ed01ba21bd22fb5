package project

import "bytes"

var binaryExts = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".rar": true, ".7z": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
	".ico": true, ".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".pyc": true, ".class": true, ".jar": true, ".o": true, ".a": true, ".wasm": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

// sniffLen matches the prefix git inspects when deciding a blob is binary.
const sniffLen = 8000

// HasBinaryExtension reports whether ext (lowercase, with dot) is a known
// binary format.
func HasBinaryExtension(ext string) bool {
	return binaryExts[ext]
}

// LooksBinary reports whether data contains a NUL byte in its leading bytes.
func LooksBinary(data []byte) bool {
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}
