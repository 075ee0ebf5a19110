// Package staticfile serves files out of a root directory: path
// canonicalization and containment, directory-index resolution,
// byte-range reads, and a CGI handoff to a script interpreter for .php
// files.
package staticfile

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/janstaffa/cree-go/internal/httpparse"
	"github.com/janstaffa/cree-go/internal/httpresp"
)

// DefaultChunkSize is the range chunk size used when only the start of a
// range is given: 1 MiB.
const DefaultChunkSize = 1024 * 1024

var indexExtensions = []string{"html", "htm", "php"}

// Service serves static files (and, optionally, PHP scripts via CGI) out
// of Root.
type Service struct {
	Root       string
	PHPPath    string // empty disables the CGI handoff
	ChunkSize  int64
	ServerName string
	ServerAddr string // host:port the listener is bound to; not read by cgiEnv, which falls back to the Host header for SERVER_NAME
}

// New creates a Service with the default chunk size.
func New(root, phpPath string) *Service {
	return &Service{Root: root, PHPPath: phpPath, ChunkSize: DefaultChunkSize}
}

// Handle implements router.Handler's shape directly so a Service can be
// registered as a fallback handler.
func (s *Service) Handle(req *httpparse.Request, resp *httpresp.Response) {
	resolved, err := s.resolve(req.Path)
	if err != nil {
		resp.SetStatus(httpresp.StatusNotFound)
		resp.Write([]byte("404 - Page not found"))
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(resolved), ".")
	if ext == "php" && s.PHPPath != "" {
		s.serveCGI(req, resp, resolved)
		return
	}

	s.serveFile(req, resp, resolved, ext)
}

// resolve concatenates Root and requestPath, then enforces containment:
// the canonical (symlink-resolved) form of the result must exist and have
// the canonical root as a prefix.
func (s *Service) resolve(requestPath string) (string, error) {
	joined := filepath.Join(s.Root, filepath.FromSlash(requestPath))

	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	realJoined, err := filepath.EvalSymlinks(absJoined)
	if err != nil {
		return "", err
	}

	if realJoined != realRoot && !strings.HasPrefix(realJoined, realRoot+string(filepath.Separator)) {
		return "", os.ErrPermission
	}

	info, err := os.Stat(realJoined)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return realJoined, nil
	}

	for _, ext := range indexExtensions {
		candidate := filepath.Join(realJoined, "index."+ext)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

func (s *Service) serveFile(req *httpparse.Request, resp *httpresp.Response, path, ext string) {
	f, err := os.Open(path)
	if err != nil {
		resp.SetStatus(httpresp.StatusNotFound)
		resp.Write([]byte("404 - Page not found"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		resp.SetStatus(httpresp.StatusNotFound)
		resp.Write([]byte("404 - Page not found"))
		return
	}
	size := info.Size()
	resp.SetHeader("Content-Type", contentType(ext))

	rangeHeader, hasRange := req.Header("range")
	if !hasRange {
		resp.SetStatus(httpresp.StatusOK)
		buf := make([]byte, size)
		if _, err := io.ReadFull(f, buf); err != nil {
			resp.SetStatus(httpresp.StatusServerError)
			resp.Write([]byte("500 - Server error"))
			return
		}
		resp.Write(buf)
		return
	}

	pr, ok := parseRangeHeader(rangeHeader)
	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	start, end, satisfiable := pr.window(size, chunkSize)
	if !ok || !satisfiable {
		resp.SetStatus(httpresp.StatusRangeNotSatisfiable)
		resp.Range = &httpresp.RangeInfo{Satisfiable: false, Total: size}
		return
	}

	buf := make([]byte, end-start)
	if _, err := f.ReadAt(buf, start); err != nil {
		resp.SetStatus(httpresp.StatusServerError)
		resp.Write([]byte("500 - Server error"))
		return
	}
	resp.SetStatus(httpresp.StatusPartialContent)
	resp.Range = &httpresp.RangeInfo{Satisfiable: true, Start: start, End: end, Total: size}
	resp.Write(buf)
}
