package staticfile

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/janstaffa/cree-go/internal/httpparse"
	"github.com/janstaffa/cree-go/internal/httpresp"
)

// serveCGI hands a .php request off to the configured interpreter,
// following the fixed CGI environment-variable contract, and splits the
// interpreter's stdout into a header block and a body.
func (s *Service) serveCGI(req *httpparse.Request, resp *httpresp.Response, scriptPath string) {
	cmd := exec.Command(s.PHPPath, scriptPath)
	cmd.Env = s.cgiEnv(req, scriptPath)

	if req.Method == httpparse.MethodPost {
		cmd.Stdin = bytes.NewReader(req.Body)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		resp.SetStatus(httpresp.StatusServerError)
		resp.Write([]byte("500 - Server error"))
		return
	}

	headers, body := splitCGIOutput(stdout.Bytes())
	for _, line := range headers {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		resp.SetHeader(name, value)
	}
	if _, ok := resp.Headers["Content-Type"]; !ok {
		resp.SetHeader("Content-Type", "text/html")
	}

	resp.SetStatus(httpresp.StatusOK)
	resp.Write(body)
}

// cgiEnv builds the fixed set of CGI environment variables the
// interpreter expects.
func (s *Service) cgiEnv(req *httpparse.Request, scriptPath string) []string {
	host, _ := req.Header("host")
	contentType, _ := req.Header("content-type")

	serverName := s.ServerName
	if serverName == "" {
		serverName = host
	}

	env := []string{
		"REDIRECT_STATUS=true",
		"REQUEST_METHOD=" + string(req.Method),
		"SCRIPT_FILENAME=" + scriptPath,
		"SCRIPT_NAME=" + req.Path,
		"SERVER_NAME=" + serverName,
		"SERVER_PROTOCOL=" + req.Version,
		"REQUEST_URI=" + req.RawURI,
		"SERVER_SOFTWARE=Cree",
		"REMOTE_ADDR=" + req.RemoteAddr,
		"DOCUMENT_ROOT=" + s.Root,
		"QUERY_STRING=" + req.Query,
		"CONTENT_LENGTH=" + strconv.Itoa(len(req.Body)),
		"CONTENT_TYPE=" + contentType,
		"HTTP_HOST=" + host,
	}
	return env
}

// splitCGIOutput separates the CGI header block from the body on the
// first blank line, tolerating both LF- and CRLF-terminated headers.
func splitCGIOutput(out []byte) (headers []string, body []byte) {
	normalized := strings.ReplaceAll(string(out), "\r\n", "\n")
	idx := strings.Index(normalized, "\n\n")
	if idx < 0 {
		return nil, out
	}
	head := normalized[:idx]
	rest := normalized[idx+2:]
	return strings.Split(head, "\n"), []byte(rest)
}
