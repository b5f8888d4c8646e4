package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"

	"github.com/use-agent/leadscout/instagram"
	"github.com/use-agent/leadscout/models"
)

const httpUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"

// HTTPEngine fetches the server-rendered profile page without a browser
// and reads the counts from its meta tags. It is much cheaper than a tab
// but Instagram often answers it with a login redirect.
type HTTPEngine struct {
	client *http.Client
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls conn.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
// timeout bounds each request; zero means no limit beyond the context.
func NewHTTPEngine(timeout time.Duration) *HTTPEngine {
	return newHTTPEngine(&http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialTLSContext:    dialChromeTLS,
			ForceAttemptHTTP2: false,
			MaxIdleConns:      4,
			IdleConnTimeout:   90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Instagram bounces crawlers through a couple of hops at most.
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return nil
		},
	})
}

// dialChromeTLS opens a TCP connection and performs a utls handshake that
// presents chromeH1Spec.
func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	raw, err := (&net.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	conn := tls.UClient(raw, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := conn.ApplyPreset(&chromeH1Spec); err != nil {
		raw.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

func newHTTPEngine(client *http.Client) *HTTPEngine {
	return &HTTPEngine{client: client}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_engine: build request: %w", err)
	}

	httpReq.Header.Set("User-Agent", httpUserAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	httpReq.Header.Set("Accept-Encoding", "identity")

	for i := range req.Cookies {
		httpReq.AddCookie(&req.Cookies[i])
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProfileFetch, "http request failed", err)
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Request.URL.Path, "/accounts/login") {
		return nil, models.NewScrapeError(models.ErrCodeLoginWall, "redirected to the login page", nil)
	}

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeProfileFetch, "read body", err)
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, models.NewScrapeError(models.ErrCodeProfileFetch,
			fmt.Sprintf("non-html or error status %d (content-type: %s)", resp.StatusCode, ct), nil)
	}

	bodyStr := string(body)
	profile, err := instagram.ParseProfileMeta(bodyStr, req.URL)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Profile:    profile,
		Title:      pageTitle(bodyStr),
		StatusCode: resp.StatusCode,
		EngineName: e.Name(),
	}, nil
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// pageTitle returns the text of the first <title> in the document, or ""
// when there is none.
func pageTitle(htmlStr string) string {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) != "title" {
				continue
			}
			if z.Next() != html.TextToken {
				return ""
			}
			return strings.Join(strings.Fields(string(z.Text())), " ")
		}
	}
}
