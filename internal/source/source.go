// Package source 封装对外部医学数据目录的只读访问。
// FDA 药品标签、RxNav 处方药目录、WHO GHO 全球健康指标与 PubMed 文献
// 检索各自有独立的客户端，共用同一套 JSON 请求辅助函数。
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// fieldLimit caps verbose label sections so a recommendation payload stays
// readable instead of carrying entire FDA monographs.
const fieldLimit = 200

type restClient struct {
	httpClient *http.Client
}

// getJSON 发起 GET 请求并把响应体解码到 out。
func (c *restClient) getJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncateField shortens one label section, marking the cut with an ellipsis.
func truncateField(s string) string {
	runes := []rune(s)
	if len(runes) <= fieldLimit {
		return s
	}
	return string(runes[:fieldLimit]) + "..."
}

// firstOr returns the first element of an openFDA string array or a default
// when the array is missing.
func firstOr(values []string, fallback string) string {
	if len(values) == 0 || values[0] == "" {
		return fallback
	}
	return values[0]
}
