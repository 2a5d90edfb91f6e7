package whttp

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const defaultUserAgent = "DeadManDash/2.0"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Body    string
	Timeout time.Duration
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// GetDefaultClient returns a client configured for the dashboard's
// contract: a single bounded attempt per call, no retries, no backoff.
func GetDefaultClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	return client
}

// SendHTTPRequest issues one request and reads the full body. The
// request is bounded by wReq.Timeout when set; a timed-out call returns
// an error just like a connection failure.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if wReq.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wReq.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if wReq.Body != "" {
		bodyReader = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en")

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}

	// Upstreams that are down sometimes answer with HTML error pages;
	// the page title is worth keeping for diagnostics.
	if title, ok := getHTMLTitle(resp.Header.Get("Content-Type"), wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}

	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)
	return wRes, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(contentType, requestBody string) (string, bool) {
	if !strings.Contains(contentType, "text/html") {
		return "", false
	}

	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}
