package livereload

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseTarget turns the configured local site address into a URL. A bare
// host such as "localhost/theme" is taken as plain HTTP.
func ParseTarget(localURL string) (*url.URL, error) {
	raw := strings.TrimSpace(localURL)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, &url.Error{Op: "parse", URL: localURL, Err: errEmptyHost}
	}
	return u, nil
}

type proxyError string

func (e proxyError) Error() string { return string(e) }

const errEmptyHost = proxyError("missing host")

// newProxy forwards requests to target and injects the client script into
// HTML responses.
func newProxy(target *url.URL, scriptPath string) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	// Compressed bodies cannot be rewritten, so the upstream is asked for
	// identity encoding and the transport must not negotiate gzip itself.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true
	proxy.Transport = transport
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
		r.Header.Del("Accept-Encoding")
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		rewriteLocation(resp, target)
		if !isHTML(resp) {
			return nil
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		out, err := InjectScript(body, scriptPath)
		if err != nil {
			// Not parseable; pass it through untouched.
			out = body
		}
		resp.Body = io.NopCloser(bytes.NewReader(out))
		resp.ContentLength = int64(len(out))
		resp.Header.Set("Content-Length", strconv.Itoa(len(out)))
		return nil
	}
	return proxy
}

func isHTML(resp *http.Response) bool {
	if resp.Header.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// rewriteLocation keeps redirects to the local site on the proxy.
func rewriteLocation(resp *http.Response, target *url.URL) {
	loc := resp.Header.Get("Location")
	if loc == "" || resp.Request == nil {
		return
	}
	u, err := url.Parse(loc)
	if err != nil || u.Host != target.Host {
		return
	}
	u.Scheme = ""
	u.Host = ""
	resp.Header.Set("Location", u.String())
}

// InjectScript appends a script element loading src to the document body,
// or to the end of the document when it has no body.
func InjectScript(document []byte, src string) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, err
	}

	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "async"},
		},
	}

	parent := findElement(doc, atom.Body)
	if parent == nil {
		parent = doc
	}
	parent.AppendChild(script)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
