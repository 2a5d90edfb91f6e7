package notion

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/DeadManOfficial/deadman-dash/pkg/whttp"
)

// CheckDatabase issues a one-page query against a database and reports
// how many pages came back along with the property names of the first
// page. Used by the debug endpoint to diagnose misconfigured database
// IDs without dumping any document contents.
func (c *Client) CheckDatabase(ctx context.Context, dbID string) (int, []string, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     c.BaseURL + "/v1/databases/" + dbID + "/query",
		Body:    `{"page_size":1}`,
		Timeout: queryTimeout,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.APIKey},
			{Name: "Notion-Version", Value: apiVersion},
			{Name: "Content-Type", Value: "application/json"},
		},
	}, c.HTTP)
	if err != nil {
		return 0, nil, err
	}
	if res.StatusCode != 200 {
		return 0, nil, fmt.Errorf("notion query returned status %d", res.StatusCode)
	}

	results := gjson.Get(res.BodyString, "results")
	count := int(results.Get("#").Int())

	var props []string
	if count > 0 {
		results.Get("0.properties").ForEach(func(key, _ gjson.Result) bool {
			props = append(props, key.Str)
			return true
		})
	}

	return count, props, nil
}
