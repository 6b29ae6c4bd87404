package fetch

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// bodyDecoder turns a compressed response body into a plain one. The
// returned ReadCloser only closes the decoder; the network body is closed
// separately by decodedBody.
type bodyDecoder func(io.Reader) (io.ReadCloser, error)

// bodyDecoders maps Content-Encoding tokens to decoders. Site CDNs serve
// gzip almost everywhere; brotli and zstd show up on the API hosts.
var bodyDecoders = map[string]bodyDecoder{
	"gzip": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"br": func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(brotli.NewReader(r)), nil
	},
	"zstd": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

const acceptedEncodings = "gzip, br, zstd"

// decodingTransport negotiates compressed responses and unwraps them before
// the body reaches the extractors. Setting Accept-Encoding manually disables
// net/http's built-in gzip handling, so all three codecs go through the
// decoder table.
type decodingTransport struct {
	next http.RoundTripper
}

func newCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &decodingTransport{next: base}
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	decode, ok := bodyDecoders[outerEncoding(resp.Header.Get("Content-Encoding"))]
	if !ok {
		// Identity or an encoding we never advertised; pass through.
		return resp, nil
	}

	plain, err := decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	resp.Body = &decodedBody{plain: plain, raw: resp.Body}

	// The encoding and length headers describe the wire form, which no
	// longer matches what the caller will read.
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// decodedBody keeps the network body reachable so both it and the decoder
// get closed.
type decodedBody struct {
	plain io.ReadCloser
	raw   io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.plain.Read(p)
}

func (b *decodedBody) Close() error {
	err := b.plain.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}

// outerEncoding returns the last token of a Content-Encoding header in
// lowercase. With stacked encodings the last one applied is the outermost
// layer and must be removed first.
func outerEncoding(header string) string {
	if i := strings.LastIndexByte(header, ','); i >= 0 {
		header = header[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(header))
}
